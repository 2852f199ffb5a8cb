package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/service"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	aliceToken := env.tokenFor(t, alice)
	bobToken := env.tokenFor(t, bob)

	resp, data := env.do(t, http.MethodPost, "/api/posts", aliceToken, map[string]any{"content": ""})
	assertError(t, resp, data, fiber.StatusBadRequest, models.CodeValidation, "")

	resp, data = env.do(t, http.MethodPost, "/api/posts", aliceToken, map[string]any{"content": "  first light  "})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	post := decode[models.Post](t, data)
	assert.Equal(t, "first light", post.Content)
	assert.Equal(t, alice.ID, post.ProfileUserID)
	postPath := "/api/posts/" + itoa(post.ID)

	resp, data = env.do(t, http.MethodPost, postPath+"/comments", bobToken, map[string]any{"content": "lovely"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	comment := decode[models.Comment](t, data)

	resp, data = env.do(t, http.MethodPost, postPath+"/comments", aliceToken,
		map[string]any{"content": "thanks", "parent_id": comment.ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))

	resp, data = env.do(t, http.MethodGet, postPath+"/comments", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Comment](t, data), 2)

	resp, data = env.do(t, http.MethodPost, postPath+"/like", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	like := decode[models.LikeState](t, data)
	assert.True(t, like.Liked)
	assert.EqualValues(t, 1, like.Count)

	resp, data = env.do(t, http.MethodPost, "/api/likes", bobToken, map[string]any{"target_type": "post", "target_id": post.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.False(t, decode[models.LikeState](t, data).Liked, "a second toggle unlikes")

	resp, data = env.do(t, http.MethodPost, postPath+"/share", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	resp, _ = env.do(t, http.MethodDelete, postPath+"/share", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, data = env.do(t, http.MethodPatch, postPath, bobToken, map[string]any{"content": "mine now"})
	assertError(t, resp, data, fiber.StatusForbidden, models.CodeForbidden, "not_author")

	resp, data = env.do(t, http.MethodPatch, postPath, aliceToken, map[string]any{"content": "edited"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "edited", decode[models.Post](t, data).Content)

	resp, data = env.do(t, http.MethodGet, "/api/posts?limit=10", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	feed := decode[service.FeedPage](t, data)
	require.Len(t, feed.Posts, 1)
	assert.EqualValues(t, 2, feed.Posts[0].CommentCount)

	resp, data = env.do(t, http.MethodDelete, postPath, bobToken, nil)
	assertError(t, resp, data, fiber.StatusForbidden, models.CodeForbidden, "not_owner")

	resp, data = env.do(t, http.MethodDelete, postPath, aliceToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.EqualValues(t, 2, decode[models.CascadeSummary](t, data).Comments)

	resp, data = env.do(t, http.MethodGet, postPath, aliceToken, nil)
	assertError(t, resp, data, fiber.StatusNotFound, models.CodeNotFound, "")
}

func TestPostVisibility(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")

	resp, data := env.do(t, http.MethodPost, "/api/posts", env.tokenFor(t, alice),
		map[string]any{"content": "diary", "visibility": "private"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	post := decode[models.Post](t, data)

	resp, data = env.do(t, http.MethodGet, "/api/posts/"+itoa(post.ID), env.tokenFor(t, bob), nil)
	assertError(t, resp, data, fiber.StatusNotFound, models.CodeNotFound, "")

	resp, data = env.do(t, http.MethodGet, "/api/users/"+itoa(alice.ID)+"/wall", env.tokenFor(t, bob), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Empty(t, decode[service.FeedPage](t, data).Posts)

	resp, data = env.do(t, http.MethodGet, "/api/posts?cursor=bogus", env.tokenFor(t, bob), nil)
	assertError(t, resp, data, fiber.StatusBadRequest, models.CodeValidation, "")
}

func TestWallPostNotifiesOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	bob := testutil.CreateUser(t, env.db, "bob")
	aliceToken := env.tokenFor(t, alice)

	resp, data := env.do(t, http.MethodPost, "/api/users/"+itoa(alice.ID)+"/wall", env.tokenFor(t, bob),
		map[string]any{"content": "happy birthday"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	post := decode[models.Post](t, data)
	assert.Equal(t, alice.ID, post.ProfileUserID)
	assert.Equal(t, bob.ID, post.AuthorID)

	// Fan-out runs on the dispatcher workers.
	require.Eventually(t, func() bool {
		resp, data := env.do(t, http.MethodGet, "/api/notifications/unread-count", aliceToken, nil)
		return resp.StatusCode == fiber.StatusOK && decode[map[string]int](t, data)["unread"] == 1
	}, 2*time.Second, 20*time.Millisecond)

	resp, data = env.do(t, http.MethodGet, "/api/notifications", aliceToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[[]models.Notification](t, data)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationWallPost, list[0].Type)

	notifPath := "/api/notifications/" + itoa(list[0].ID)
	resp, data = env.do(t, http.MethodPost, notifPath+"/read", env.tokenFor(t, bob), nil)
	assertError(t, resp, data, fiber.StatusNotFound, models.CodeNotFound, "")

	resp, _ = env.do(t, http.MethodPost, notifPath+"/read", aliceToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/api/notifications/read-all", aliceToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[map[string]int](t, data)["updated"])

	resp, _ = env.do(t, http.MethodDelete, notifPath, aliceToken, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestDeleteContent(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "alice")
	token := env.tokenFor(t, alice)

	resp, data := env.do(t, http.MethodDelete, "/api/content/widget/1", token, nil)
	assertError(t, resp, data, fiber.StatusBadRequest, models.CodeValidation, "")

	resp, data = env.do(t, http.MethodDelete, "/api/content/post/999", token, nil)
	assertError(t, resp, data, fiber.StatusNotFound, models.CodeNotFound, "")

	resp, data = env.do(t, http.MethodPost, "/api/posts", token, map[string]any{"content": "short lived"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	post := decode[models.Post](t, data)

	resp, data = env.do(t, http.MethodDelete, "/api/content/post/"+itoa(post.ID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	summary := decode[models.CascadeSummary](t, data)
	assert.Equal(t, models.TargetPost, summary.TargetType)
	assert.Equal(t, post.ID, summary.TargetID)
}
