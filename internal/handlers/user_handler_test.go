package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/handlers"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/models"
)

type userFixture struct {
	users    *fakeUserRepo
	notifs   *fakeNotificationRepo
	uploader *fakeUploader
	handler  *handlers.UserHandler
}

func newUserFixture() *userFixture {
	users := newFakeUserRepo()
	notifs := newFakeNotificationRepo(newFakeClock())
	uploader := &fakeUploader{}
	return &userFixture{
		users:    users,
		notifs:   notifs,
		uploader: uploader,
		handler:  handlers.NewUserHandler(users, notifs, uploader),
	}
}

func TestGetUserProfile(t *testing.T) {
	f := newUserFixture()
	alice := f.users.addUser("alice")

	t.Run("returns the profile by username", func(t *testing.T) {
		c, rec := newTestContext(t, http.MethodGet, "/api/users/profile/alice", nil, alice.ID)
		c.SetParamNames("username")
		c.SetParamValues("alice")

		require.NoError(t, f.handler.GetUserProfile(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var got models.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("unknown username is a 404", func(t *testing.T) {
		c, _ := newTestContext(t, http.MethodGet, "/api/users/profile/nobody", nil, alice.ID)
		c.SetParamNames("username")
		c.SetParamValues("nobody")

		he := httpError(t, f.handler.GetUserProfile(c))
		assert.Equal(t, http.StatusNotFound, he.Code)
		assert.Equal(t, "User not found", he.Message)
	})
}

func TestFollowUnfollowUser(t *testing.T) {
	t.Run("following links both users and notifies the target", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")
		bob := f.users.addUser("bob")

		c, rec := newTestContext(t, http.MethodPost, "/api/users/follow/"+bob.ID.Hex(), nil, alice.ID)
		c.SetParamNames("id")
		c.SetParamValues(bob.ID.Hex())

		require.NoError(t, f.handler.FollowUnfollowUser(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"User followed successfully"}`, rec.Body.String())

		assert.Contains(t, f.users.users[alice.ID].Following, bob.ID)
		assert.Contains(t, f.users.users[bob.ID].Followers, alice.ID)

		notifs := f.notifs.forRecipient(bob.ID)
		require.Len(t, notifs, 1)
		assert.Equal(t, models.NotificationTypeFollow, notifs[0].Type)
		assert.Equal(t, alice.ID, notifs[0].From)
	})

	t.Run("following again unfollows without notifying", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")
		bob := f.users.addUser("bob")

		for i := 0; i < 2; i++ {
			c, _ := newTestContext(t, http.MethodPost, "/api/users/follow/"+bob.ID.Hex(), nil, alice.ID)
			c.SetParamNames("id")
			c.SetParamValues(bob.ID.Hex())
			require.NoError(t, f.handler.FollowUnfollowUser(c))
		}

		assert.Empty(t, f.users.users[alice.ID].Following)
		assert.Empty(t, f.users.users[bob.ID].Followers)
		// Only the original follow notification remains
		assert.Len(t, f.notifs.forRecipient(bob.ID), 1)
	})

	t.Run("self-follow is rejected", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")

		c, _ := newTestContext(t, http.MethodPost, "/api/users/follow/"+alice.ID.Hex(), nil, alice.ID)
		c.SetParamNames("id")
		c.SetParamValues(alice.ID.Hex())

		he := httpError(t, f.handler.FollowUnfollowUser(c))
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, "You can't follow/unfollow yourself", he.Message)
	})

	t.Run("unknown target is a 404", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")
		ghost := primitive.NewObjectID()

		c, _ := newTestContext(t, http.MethodPost, "/api/users/follow/"+ghost.Hex(), nil, alice.ID)
		c.SetParamNames("id")
		c.SetParamValues(ghost.Hex())

		he := httpError(t, f.handler.FollowUnfollowUser(c))
		assert.Equal(t, http.StatusNotFound, he.Code)
	})

	t.Run("malformed target id is a 400", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")

		c, _ := newTestContext(t, http.MethodPost, "/api/users/follow/not-an-id", nil, alice.ID)
		c.SetParamNames("id")
		c.SetParamValues("not-an-id")

		he := httpError(t, f.handler.FollowUnfollowUser(c))
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})
}

func TestGetSuggestedUsers(t *testing.T) {
	f := newUserFixture()
	alice := f.users.addUser("alice")
	bob := f.users.addUser("bob")
	f.users.addUser("carol")
	f.users.addUser("dave")

	require.NoError(t, f.users.Follow(context.Background(), alice.ID, bob.ID))

	c, rec := newTestContext(t, http.MethodGet, "/api/users/suggested", nil, alice.ID)
	require.NoError(t, f.handler.GetSuggestedUsers(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var suggested []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &suggested))
	assert.LessOrEqual(t, len(suggested), 4)
	for _, u := range suggested {
		assert.NotEqual(t, alice.ID, u.ID, "must not suggest the actor")
		assert.NotEqual(t, bob.ID, u.ID, "must not suggest someone already followed")
	}
}

func TestUpdateUser(t *testing.T) {
	const pngDataURL = "data:image/png;base64,iVBORw0KGgo="

	t.Run("updates profile fields", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")

		body := models.UpdateUserRequest{Bio: "gopher", Link: "https://alice.dev"}
		c, rec := newTestContext(t, http.MethodPost, "/api/users/update", body, alice.ID)

		require.NoError(t, f.handler.UpdateUser(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gopher", f.users.users[alice.ID].Bio)
		assert.Equal(t, "https://alice.dev", f.users.users[alice.ID].Link)
	})

	t.Run("requires both passwords to change one", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")

		body := models.UpdateUserRequest{NewPassword: "newpassword1"}
		c, _ := newTestContext(t, http.MethodPost, "/api/users/update", body, alice.ID)

		he := httpError(t, f.handler.UpdateUser(c))
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, "Please provide both current password and new password", he.Message)
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")
		hashed, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
		require.NoError(t, err)
		f.users.users[alice.ID].Password = string(hashed)

		body := models.UpdateUserRequest{CurrentPassword: "wrong", NewPassword: "newpassword1"}
		c, _ := newTestContext(t, http.MethodPost, "/api/users/update", body, alice.ID)

		he := httpError(t, f.handler.UpdateUser(c))
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, "Current password is incorrect", he.Message)
	})

	t.Run("rehashes the password on change", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")
		hashed, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
		require.NoError(t, err)
		f.users.users[alice.ID].Password = string(hashed)

		body := models.UpdateUserRequest{CurrentPassword: "oldpassword", NewPassword: "newpassword1"}
		c, rec := newTestContext(t, http.MethodPost, "/api/users/update", body, alice.ID)

		require.NoError(t, f.handler.UpdateUser(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, bcrypt.CompareHashAndPassword(
			[]byte(f.users.users[alice.ID].Password), []byte("newpassword1")))
	})

	t.Run("uploads a new profile image and removes the old one", func(t *testing.T) {
		f := newUserFixture()
		alice := f.users.addUser("alice")
		oldImg := alice.ProfileImg

		body := models.UpdateUserRequest{ProfileImg: pngDataURL}
		c, rec := newTestContext(t, http.MethodPost, "/api/users/update", body, alice.ID)

		require.NoError(t, f.handler.UpdateUser(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, f.uploader.uploads)
		assert.Equal(t, []string{oldImg}, f.uploader.deleted)
		assert.Equal(t, "https://media.test/1.img", f.users.users[alice.ID].ProfileImg)
	})
}
