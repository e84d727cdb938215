package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/newsmeme/config"
	"github.com/d60-Lab/newsmeme/internal/api/handler"
	"github.com/d60-Lab/newsmeme/internal/auth"
	"github.com/d60-Lab/newsmeme/internal/cache"
	"github.com/d60-Lab/newsmeme/internal/model"
	"github.com/d60-Lab/newsmeme/internal/repository"
	"github.com/d60-Lab/newsmeme/internal/service"
)

type apiResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Fields  map[string]string `json:"fields"`
}

type testServer struct {
	engine *gin.Engine
	store  *repository.Store
	mailer *service.MemoryMailer
}

func newTestServer(t *testing.T, rl config.RateLimitConfig) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.All()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: "test", Expire: time.Hour, Issuer: "newsmeme"},
		RateLimit: rl,
	}
	store := repository.NewStore(db)
	mailer := &service.MemoryMailer{}
	tokens := auth.NewTokenManager(cfg.JWT)
	fans := cache.NewFanIndex(rdb, time.Minute, service.FanLoader(store))
	tags := service.NewTagService(store, cache.NewRedisCache(rdb, "newsmeme:"), time.Minute, 10)
	accounts := service.NewAccountService(store, tokens, tags, fans, mailer, 40)
	h := handler.NewHandler(
		accounts,
		service.NewRelationshipService(store, fans, mailer),
		service.NewPostService(store, tags, mailer, 40),
		service.NewCommentService(store, mailer, nil, 20),
		tags,
	)
	return &testServer{engine: Setup(cfg, h, tokens, accounts), store: store, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var out apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

// register 注册并登录，返回 token 与用户 ID
func (s *testServer) register(t *testing.T, name string) (string, int64) {
	t.Helper()
	code, _ := s.do(t, http.MethodPost, "/api/v1/account/signup", "", gin.H{
		"username": name, "email": name + "@example.com", "password": "secret1", "password_again": "secret1",
	})
	require.Equal(t, http.StatusCreated, code)
	code, resp := s.do(t, http.MethodPost, "/api/v1/account/login", "", gin.H{"login": name, "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	var res struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token, res.User.ID
}

func (s *testServer) submit(t *testing.T, token string, body gin.H) int64 {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/v1/posts", token, body)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var p model.Post
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	return p.ID
}

var defaultLimit = config.RateLimitConfig{VotesPerSecond: 100, Burst: 100}

func TestHealth(t *testing.T) {
	s := newTestServer(t, defaultLimit)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t, defaultLimit)
	code, resp := s.do(t, http.MethodPost, "/api/v1/account/signup", "", gin.H{
		"username": "x", "email": "nope", "password": "123", "password_again": "456",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	for _, f := range []string{"username", "email", "password", "password_again"} {
		assert.Contains(t, resp.Fields, f)
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/account/login", "", gin.H{"login": "ghost", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPostVisibilityOverHTTP(t *testing.T) {
	s := newTestServer(t, defaultLimit)
	alice, _ := s.register(t, "alice")
	bob, _ := s.register(t, "bob")

	pub := s.submit(t, alice, gin.H{"title": "testing", "link": "http://reddit.com", "tags": "Music, comedy"})
	priv := s.submit(t, alice, gin.H{"title": "secret", "access": int(model.AccessPrivate)})

	code, _ := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", priv), "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", priv), bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", priv), alice, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp := s.do(t, http.MethodGet, "/api/v1/posts?sort=latest", "", nil)
	require.Equal(t, http.StatusOK, code)
	var page service.PostPage
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, int64(1), page.Total)

	code, _ = s.do(t, http.MethodGet, "/api/v1/posts?sort=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/post/%d", pub), "", nil)
	require.Equal(t, http.StatusOK, code)
	var pj model.PostJSON
	require.NoError(t, json.Unmarshal(resp.Data, &pj))
	assert.Equal(t, pub, pj.PostID)
	assert.Equal(t, "alice", pj.Author)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/post/%d", priv), "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = s.do(t, http.MethodGet, "/api/search?keywords=testing+reddit", "", nil)
	require.Equal(t, http.StatusOK, code)
	var found []model.PostJSON
	require.NoError(t, json.Unmarshal(resp.Data, &found))
	assert.Len(t, found, 1)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tags/MUSIC", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/posts/1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestVoteAndComments(t *testing.T) {
	s := newTestServer(t, defaultLimit)
	alice, _ := s.register(t, "alice")
	bob, _ := s.register(t, "bob")
	id := s.submit(t, alice, gin.H{"title": "hello"})

	path := fmt.Sprintf("/api/v1/posts/%d/upvote", id)
	code, resp := s.do(t, http.MethodPost, path, bob, nil)
	require.Equal(t, http.StatusOK, code)
	var vr service.VoteResult
	require.NoError(t, json.Unmarshal(resp.Data, &vr))
	assert.Equal(t, service.VoteResult{Score: 2, Applied: true}, vr)

	code, resp = s.do(t, http.MethodPost, path, bob, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &vr))
	assert.False(t, vr.Applied)

	code, _ = s.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	cpath := fmt.Sprintf("/api/v1/posts/%d/comments", id)
	code, resp = s.do(t, http.MethodPost, cpath, bob, gin.H{"comment": "first"})
	require.Equal(t, http.StatusCreated, code)
	var root model.Comment
	require.NoError(t, json.Unmarshal(resp.Data, &root))
	code, _ = s.do(t, http.MethodPost, cpath, alice, gin.H{"comment": "reply", "parent_id": root.ID})
	require.Equal(t, http.StatusCreated, code)

	code, resp = s.do(t, http.MethodGet, cpath, "", nil)
	require.Equal(t, http.StatusOK, code)
	var tree []struct {
		Depth    int `json:"depth"`
		Children []struct {
			Depth int `json:"depth"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &tree))
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, 1, tree[0].Children[0].Depth)

	code, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", root.ID), alice, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", root.ID), bob, nil)
	assert.Equal(t, http.StatusOK, code)

	post, err := s.store.Posts.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, post.NumComments)
}

func TestVoteRateLimit(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{VotesPerSecond: 0.001, Burst: 2})
	alice, _ := s.register(t, "alice")
	bob, _ := s.register(t, "bob")
	id := s.submit(t, alice, gin.H{"title": "hello"})

	path := fmt.Sprintf("/api/v1/posts/%d/downvote", id)
	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, path, bob, nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := s.do(t, http.MethodPost, path, bob, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestRelationsOverHTTP(t *testing.T) {
	s := newTestServer(t, defaultLimit)
	alice, aliceID := s.register(t, "alice")
	bob, bobID := s.register(t, "bob")

	code, _ := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/follow", bobID), alice, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/follow", aliceID), bob, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/follow", aliceID), alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/relations/%d/friends", aliceID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var friends []model.User
	require.NoError(t, json.Unmarshal(resp.Data, &friends))
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].Username)

	code, resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/relations/%d/fans?page=1&page_size=5", bobID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var fans struct {
		List []model.User `json:"list"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &fans))
	require.Len(t, fans.List, 1)
	assert.Equal(t, "alice", fans.List[0].Username)

	require.NoError(t, s.store.Users.Update(context.Background(), bobID, map[string]interface{}{"receive_email": true}))
	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/message", bobID), alice, gin.H{"subject": "hi", "message": "hello"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/alice", bob, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/users/nobody", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
