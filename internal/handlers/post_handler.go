package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/models"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/repositories"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/pkg/media"
)

// PostHandler handles HTTP requests related to posts, likes and comments
type PostHandler struct {
	postRepository         repositories.PostRepository
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
	mediaStore             media.Uploader
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository, mediaStore media.Uploader) *PostHandler {
	return &PostHandler{
		postRepository:         postRepo,
		userRepository:         userRepo,
		notificationRepository: notifRepo,
		mediaStore:             mediaStore,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts/create", h.CreatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/like/:id", h.LikeUnlikePost)
	g.POST("/posts/comment/:id", h.CommentOnPost)
	g.GET("/posts/all", h.GetAllPosts)
	g.GET("/posts/likes/:id", h.GetLikedPosts)
	g.GET("/posts/following", h.GetFollowingPosts)
	g.GET("/posts/user/:username", h.GetUserPosts)
}

// CreatePost creates a new post with optional image upload
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	if _, err := h.userRepository.GetUserByID(ctx, userID); err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if strings.TrimSpace(req.Text) == "" && req.Img == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Post must have text or image")
	}

	var imgURL string
	if req.Img != "" {
		data, contentType, err := parseDataURL(req.Img)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid image payload")
		}
		imgURL, err = h.mediaStore.Upload(data, contentType)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	post := &models.Post{
		User: userID,
		Text: req.Text,
		Img:  imgURL,
	}
	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, post)
}

// DeletePost deletes a post; only the owner may delete it
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()

	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return postLookupError(err)
	}

	if post.User != userID {
		return echo.NewHTTPError(http.StatusUnauthorized, "You are not authorized to delete this post")
	}

	if post.Img != "" {
		if err := h.mediaStore.Delete(post.Img); err != nil {
			log.Printf("failed to delete post image %s: %v", post.Img, err)
		}
	}

	if err := h.postRepository.DeletePost(ctx, post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted successfully"})
}

// LikeUnlikePost toggles the actor's like on a post. Liking records the
// like on both the post and the actor and notifies the owner; unliking
// reverses all three. Returns the post's updated likes set.
func (h *PostHandler) LikeUnlikePost(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()

	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return postLookupError(err)
	}

	if containsID(post.Likes, userID) {
		// Unlike: remove the like from post and user, then the matching
		// notification (best-effort single match)
		likes, err := h.postRepository.RemoveLike(ctx, post.ID, userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := h.userRepository.RemoveLikedPost(ctx, userID, post.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := h.notificationRepository.DeleteMatching(ctx, userID, post.User, models.NotificationTypeLike); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, likes)
	}

	// Like: the post update, user update and notification create are
	// independent writes issued concurrently, not a transaction. A partial
	// failure surfaces as 500 and is not repaired here.
	var likes []primitive.ObjectID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		updated, err := h.postRepository.AddLike(gctx, post.ID, userID)
		if err == nil {
			likes = updated
		}
		return err
	})
	g.Go(func() error {
		return h.userRepository.AddLikedPost(gctx, userID, post.ID)
	})
	if post.User != userID {
		// Liking one's own post never notifies
		g.Go(func() error {
			return h.notificationRepository.CreateNotification(gctx, &models.Notification{
				From: userID,
				To:   post.User,
				Type: models.NotificationTypeLike,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, likes)
}

// CommentOnPost appends a comment to a post and notifies the owner.
// Comments are append-only; there is no edit or delete.
func (h *PostHandler) CommentOnPost(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Please log in first")
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Comment can not be empty")
	}

	ctx := c.Request().Context()
	postID := c.Param("id")

	// Fetch post and acting user in parallel; they have no data dependency
	var post *models.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := h.postRepository.GetPostByID(gctx, postID)
		post = p
		return err
	})
	g.Go(func() error {
		_, err := h.userRepository.GetUserByID(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return postLookupError(err)
	}

	comment := &models.Comment{
		User: userID,
		Text: text,
	}
	if err := h.postRepository.AddComment(ctx, post.ID, comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if userID != post.User {
		notif := &models.Notification{
			From:    userID,
			To:      post.User,
			Type:    models.NotificationTypeComment,
			Content: text,
			Post:    &post.ID,
		}
		if err := h.notificationRepository.CreateNotification(ctx, notif); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	updated, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	view, err := h.populatePost(ctx, updated)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

// GetAllPosts returns every post, newest first, with authors populated
func (h *PostHandler) GetAllPosts(c echo.Context) error {
	ctx := c.Request().Context()

	posts, err := h.postRepository.GetAllPosts(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views, err := h.populatePosts(ctx, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, views)
}

// GetLikedPosts returns the posts a user has liked
func (h *PostHandler) GetLikedPosts(c echo.Context) error {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, err := h.postRepository.GetPostsByIDs(ctx, user.LikedPosts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views, err := h.populatePosts(ctx, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, views)
}

// GetFollowingPosts returns the posts authored by users the actor follows
func (h *PostHandler) GetFollowingPosts(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, err := h.postRepository.GetPostsByUserIDs(ctx, user.Following)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views, err := h.populatePosts(ctx, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, views)
}

// GetUserPosts returns the posts authored by the named user
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, err := h.postRepository.GetPostsByUserID(ctx, user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	views, err := h.populatePosts(ctx, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, views)
}

// populatePost expands the post's author and comment author references
// into display identities
func (h *PostHandler) populatePost(ctx context.Context, post *models.Post) (*models.PostView, error) {
	cache := make(map[primitive.ObjectID]models.UserCompact)
	return h.populatePostCached(ctx, post, cache)
}

func (h *PostHandler) populatePosts(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	views := make([]models.PostView, 0, len(posts))
	cache := make(map[primitive.ObjectID]models.UserCompact)
	for i := range posts {
		view, err := h.populatePostCached(ctx, &posts[i], cache)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (h *PostHandler) populatePostCached(ctx context.Context, post *models.Post, cache map[primitive.ObjectID]models.UserCompact) (*models.PostView, error) {
	author, err := h.lookupCompact(ctx, post.User, cache)
	if err != nil {
		return nil, err
	}

	comments := make([]models.CommentView, 0, len(post.Comments))
	for _, cm := range post.Comments {
		commentAuthor, err := h.lookupCompact(ctx, cm.User, cache)
		if err != nil {
			return nil, err
		}
		comments = append(comments, models.CommentView{
			ID:        cm.ID,
			User:      commentAuthor,
			Text:      cm.Text,
			CreatedAt: cm.CreatedAt,
		})
	}

	likes := post.Likes
	if likes == nil {
		likes = []primitive.ObjectID{}
	}

	return &models.PostView{
		ID:        post.ID,
		User:      author,
		Text:      post.Text,
		Img:       post.Img,
		Likes:     likes,
		Comments:  comments,
		CreatedAt: post.CreatedAt,
	}, nil
}

// lookupCompact resolves a user reference, caching per request. A deleted
// author resolves to an identity carrying only the id.
func (h *PostHandler) lookupCompact(ctx context.Context, id primitive.ObjectID, cache map[primitive.ObjectID]models.UserCompact) (models.UserCompact, error) {
	if compact, ok := cache[id]; ok {
		return compact, nil
	}
	user, err := h.userRepository.GetUserByID(ctx, id)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			compact := models.UserCompact{ID: id}
			cache[id] = compact
			return compact, nil
		}
		return models.UserCompact{}, err
	}
	compact := user.ToCompact()
	cache[id] = compact
	return compact, nil
}

// postLookupError maps a post fetch failure to the boundary error shape.
// A malformed id is indistinguishable from a missing post to the caller.
func postLookupError(err error) error {
	if errors.Is(err, repositories.ErrPostNotFound) || errors.Is(err, repositories.ErrInvalidPostID) {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// parseDataURL decodes a base64 data URL into its payload and content type
func parseDataURL(raw string) ([]byte, string, error) {
	if !strings.HasPrefix(raw, "data:") {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "not a data URL")
	}
	rest := strings.TrimPrefix(raw, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "not a base64 data URL")
	}
	contentType := rest[:sep]
	data, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}
