package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/models"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/repositories"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/validators"
)

// In-memory repository fakes implementing the repository interfaces, so
// handler behavior can be exercised without a database.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUserRepo) addUser(username string) *models.User {
	user := &models.User{
		ID:         primitive.NewObjectID(),
		Username:   username,
		FullName:   username,
		Email:      username + "@example.com",
		ProfileImg: "https://media.test/avatars/" + username + ".png",
		Followers:  []primitive.ObjectID{},
		Following:  []primitive.ObjectID{},
		LikedPosts: []primitive.ObjectID{},
		CreatedAt:  time.Now(),
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.LikedPosts == nil {
		user.LikedPosts = []primitive.ObjectID{}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateUser(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) AddLikedPost(_ context.Context, userID, postID primitive.ObjectID) error {
	user, ok := f.users[userID]
	if !ok {
		return nil
	}
	for _, id := range user.LikedPosts {
		if id == postID {
			return nil
		}
	}
	user.LikedPosts = append(user.LikedPosts, postID)
	return nil
}

func (f *fakeUserRepo) RemoveLikedPost(_ context.Context, userID, postID primitive.ObjectID) error {
	user, ok := f.users[userID]
	if !ok {
		return nil
	}
	user.LikedPosts = removeID(user.LikedPosts, postID)
	return nil
}

func (f *fakeUserRepo) Follow(_ context.Context, followerID, targetID primitive.ObjectID) error {
	f.users[followerID].Following = append(f.users[followerID].Following, targetID)
	f.users[targetID].Followers = append(f.users[targetID].Followers, followerID)
	return nil
}

func (f *fakeUserRepo) Unfollow(_ context.Context, followerID, targetID primitive.ObjectID) error {
	f.users[followerID].Following = removeID(f.users[followerID].Following, targetID)
	f.users[targetID].Followers = removeID(f.users[targetID].Followers, followerID)
	return nil
}

func (f *fakeUserRepo) GetSuggestedUsers(_ context.Context, exclude []primitive.ObjectID, limit int) ([]models.User, error) {
	var users []models.User
	for _, user := range f.users {
		excluded := false
		for _, id := range exclude {
			if id == user.ID {
				excluded = true
				break
			}
		}
		if !excluded && len(users) < limit {
			users = append(users, *user)
		}
	}
	return users, nil
}

type fakePostRepo struct {
	posts map[primitive.ObjectID]*models.Post
	clock *fakeClock
}

func newFakePostRepo(clock *fakeClock) *fakePostRepo {
	return &fakePostRepo{posts: make(map[primitive.ObjectID]*models.Post), clock: clock}
}

func (f *fakePostRepo) addPost(owner primitive.ObjectID, text string) *models.Post {
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		User:      owner,
		Text:      text,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: f.clock.next(),
	}
	f.posts[post.ID] = post
	return post
}

func (f *fakePostRepo) CreatePost(_ context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = f.clock.next()
	post.UpdatedAt = post.CreatedAt
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrInvalidPostID, err)
	}
	post, ok := f.posts[objID]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	copied := *post
	copied.Likes = append([]primitive.ObjectID{}, post.Likes...)
	copied.Comments = append([]models.Comment{}, post.Comments...)
	return &copied, nil
}

func (f *fakePostRepo) GetAllPosts(_ context.Context) ([]models.Post, error) {
	return f.filter(func(*models.Post) bool { return true }), nil
}

func (f *fakePostRepo) GetPostsByUserID(_ context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	return f.filter(func(p *models.Post) bool { return p.User == userID }), nil
}

func (f *fakePostRepo) GetPostsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	return f.filter(func(p *models.Post) bool {
		for _, id := range ids {
			if id == p.ID {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakePostRepo) GetPostsByUserIDs(_ context.Context, userIDs []primitive.ObjectID) ([]models.Post, error) {
	return f.filter(func(p *models.Post) bool {
		for _, id := range userIDs {
			if id == p.User {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakePostRepo) filter(keep func(*models.Post) bool) []models.Post {
	var posts []models.Post
	for _, post := range f.posts {
		if keep(post) {
			posts = append(posts, *post)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts
}

func (f *fakePostRepo) DeletePost(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) AddLike(_ context.Context, postID, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	post, ok := f.posts[postID]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	found := false
	for _, id := range post.Likes {
		if id == userID {
			found = true
			break
		}
	}
	if !found {
		post.Likes = append(post.Likes, userID)
	}
	return append([]primitive.ObjectID{}, post.Likes...), nil
}

func (f *fakePostRepo) RemoveLike(_ context.Context, postID, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	post, ok := f.posts[postID]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	post.Likes = removeID(post.Likes, userID)
	return append([]primitive.ObjectID{}, post.Likes...), nil
}

func (f *fakePostRepo) AddComment(_ context.Context, postID primitive.ObjectID, comment *models.Comment) error {
	post, ok := f.posts[postID]
	if !ok {
		return repositories.ErrPostNotFound
	}
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = f.clock.next()
	post.Comments = append(post.Comments, *comment)
	return nil
}

type fakeNotificationRepo struct {
	notifications []models.Notification
	clock         *fakeClock
}

func newFakeNotificationRepo(clock *fakeClock) *fakeNotificationRepo {
	return &fakeNotificationRepo{clock: clock}
}

func (f *fakeNotificationRepo) CreateNotification(_ context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = f.clock.next()
	notification.Read = false
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) GetByRecipient(_ context.Context, recipientID primitive.ObjectID) ([]models.Notification, error) {
	var matched []models.Notification
	for _, n := range f.notifications {
		if n.To == recipientID {
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return matched, nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID primitive.ObjectID) error {
	for i := range f.notifications {
		if f.notifications[i].To == recipientID {
			f.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteMatching(_ context.Context, from, to primitive.ObjectID, notifType string) error {
	for i, n := range f.notifications {
		if n.From == from && n.To == to && n.Type == notifType {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteAllForRecipient(_ context.Context, recipientID primitive.ObjectID) (int64, error) {
	var kept []models.Notification
	var deleted int64
	for _, n := range f.notifications {
		if n.To == recipientID {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	f.notifications = kept
	return deleted, nil
}

func (f *fakeNotificationRepo) forRecipient(recipientID primitive.ObjectID) []models.Notification {
	var matched []models.Notification
	for _, n := range f.notifications {
		if n.To == recipientID {
			matched = append(matched, n)
		}
	}
	return matched
}

type fakeUploader struct {
	uploads int
	deleted []string
}

func (f *fakeUploader) Upload(_ []byte, _ string) (string, error) {
	f.uploads++
	return fmt.Sprintf("https://media.test/%d.img", f.uploads), nil
}

func (f *fakeUploader) Delete(url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

// fakeClock hands out strictly increasing timestamps so newest-first
// ordering is deterministic
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) next() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func removeID(ids []primitive.ObjectID, target primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// newTestContext builds an echo context carrying an optional JSON body and
// the authenticated actor id the JWT middleware would have set
func newTestContext(t *testing.T, method, target string, body any, actor primitive.ObjectID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validators.NewValidator()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		req = httptest.NewRequest(method, target, bytes.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != primitive.NilObjectID {
		c.Set("userID", actor.Hex())
	}
	return c, rec
}
