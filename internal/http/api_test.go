package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"devconnector/internal/auth"
	"devconnector/internal/repository/sqlite"
	"devconnector/internal/service"
	"devconnector/internal/storage"
)

type memoryMedia struct {
	mu      sync.Mutex
	objects map[string]int
}

func (m *memoryMedia) PutObject(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[opts.Key] = int(n)
	return "https://media.test/" + opts.Key, nil
}

func (m *memoryMedia) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for k, n := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(n)})
		}
	}
	return out, nil
}

func (m *memoryMedia) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenService
	media  *memoryMedia
}

type serverOptions struct {
	withMedia bool
	rateLimit RateLimitConfig
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	profiles := sqlite.NewProfileRepository(db)
	posts := sqlite.NewPostRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, profiles.Init(ctx))
	require.NoError(t, posts.Init(ctx))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ts := &testServer{}
	var media storage.Service
	if opts.withMedia {
		ts.media = &memoryMedia{objects: make(map[string]int)}
		media = ts.media
	}

	ts.tokens, err = auth.NewTokenService("test-secret", auth.DefaultTokenTTL)
	require.NoError(t, err)

	handler := NewHandler(Options{
		Users:     service.NewUserService(users, media, "avatars"),
		Profiles:  service.NewProfileService(profiles, users, media, "avatars", logger),
		Posts:     service.NewPostService(posts, users),
		Tokens:    ts.tokens,
		Logger:    logger,
		RateLimit: opts.rateLimit,
	})
	ts.router = gin.New()
	require.NoError(t, ts.router.SetTrustedProxies(nil))
	handler.RegisterRoutes(ts.router)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doWithHeaders(t, method, path, token, body, nil)
}

func (ts *testServer) doWithHeaders(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/users", "", gin.H{"name": name, "email": email, "password": "abc123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp tokenResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func firstFieldError(t *testing.T, w *httptest.ResponseRecorder) fieldError {
	t.Helper()
	var resp struct {
		Errors []fieldError `json:"errors"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Errors, w.Body.String())
	return resp.Errors[0]
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decode(t, w, &resp)
	return resp.Error
}

func TestAuthGate(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, http.MethodGet, "/api/auth", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "no token, authorization denied", errorBody(t, w))

	w = ts.do(t, http.MethodGet, "/api/posts", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "token is not valid", errorBody(t, w))

	w = ts.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "App running", w.Body.String())
}

func TestRegisterMeAndPostScenario(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	token := ts.register(t, "A", "a@x.com")

	w := ts.do(t, http.MethodGet, "/api/auth", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "password")
	var me UserResponse
	decode(t, w, &me)
	require.Equal(t, "A", me.Name)
	require.Equal(t, "a@x.com", me.Email)

	w = ts.do(t, http.MethodPost, "/api/posts", token, gin.H{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var post PostResponse
	decode(t, w, &post)
	require.Equal(t, "hello", post.Text)
	require.Equal(t, "A", post.Name)
	require.Equal(t, me.ID, post.User)
	require.Equal(t, me.Avatar, post.Avatar)
	require.Empty(t, post.Likes)

	w = ts.do(t, http.MethodGet, "/api/posts/"+post.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/posts/missing", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "post not found", errorBody(t, w))
}

func TestRegisterDuplicateAndLogin(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ts.register(t, "A", "a@x.com")

	w := ts.do(t, http.MethodPost, "/api/users", "", gin.H{"name": "A2", "email": "A@x.com", "password": "abc123"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth", "", gin.H{"email": "a@x.com", "password": "abc123"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth", "", gin.H{"email": "a@x.com", "password": "wrong"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid credentials", errorBody(t, w))

	w = ts.do(t, http.MethodPost, "/api/auth", "", gin.H{"email": "nobody@x.com", "password": "abc123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid credentials", errorBody(t, w))
}

func TestValidationReportsFields(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	w := ts.do(t, http.MethodPost, "/api/users", "", gin.H{"email": "not-an-email", "password": "ab"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Errors []fieldError `json:"errors"`
	}
	decode(t, w, &resp)
	fields := make(map[string]string)
	for _, fe := range resp.Errors {
		fields[fe.Field] = fe.Message
	}
	require.Equal(t, "name is required", fields["name"])
	require.Equal(t, "please include a valid email", fields["email"])
	require.Contains(t, fields, "password")
}

func TestLikeUnlike(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")
	b := ts.register(t, "B", "b@x.com")

	w := ts.do(t, http.MethodPost, "/api/posts", a, gin.H{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var post PostResponse
	decode(t, w, &post)

	w = ts.do(t, http.MethodPut, "/api/posts/like/"+post.ID, b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var likes []LikeResponse
	decode(t, w, &likes)
	require.Len(t, likes, 1)

	w = ts.do(t, http.MethodPut, "/api/posts/like/"+post.ID, b, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "post already liked", errorBody(t, w))

	w = ts.do(t, http.MethodPut, "/api/posts/unlike/"+post.ID, a, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "post has not yet been liked", errorBody(t, w))

	w = ts.do(t, http.MethodPut, "/api/posts/unlike/"+post.ID, b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &likes)
	require.Empty(t, likes)

	w = ts.do(t, http.MethodPut, "/api/posts/like/missing", b, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentOwnership(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")
	b := ts.register(t, "B", "b@x.com")

	w := ts.do(t, http.MethodPost, "/api/posts", a, gin.H{"text": "hello"})
	var post PostResponse
	decode(t, w, &post)

	w = ts.do(t, http.MethodPost, "/api/posts/comment/"+post.ID, b, gin.H{"text": "first"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/api/posts/comment/"+post.ID, b, gin.H{"text": "second"})
	require.Equal(t, http.StatusOK, w.Code)
	var comments []CommentResponse
	decode(t, w, &comments)
	require.Len(t, comments, 2)
	require.Equal(t, "second", comments[0].Text)
	require.Equal(t, "B", comments[0].Name)

	w = ts.do(t, http.MethodDelete, "/api/posts/comment/"+post.ID+"/"+comments[1].ID, a, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "user not authorized", errorBody(t, w))

	w = ts.do(t, http.MethodGet, "/api/posts/"+post.ID, a, nil)
	decode(t, w, &post)
	require.Len(t, post.Comments, 2)

	w = ts.do(t, http.MethodDelete, "/api/posts/comment/"+post.ID+"/missing", b, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "comment does not exist", errorBody(t, w))

	w = ts.do(t, http.MethodDelete, "/api/posts/comment/missing/"+comments[1].ID, b, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "post not found", errorBody(t, w))

	w = ts.do(t, http.MethodDelete, "/api/posts/comment/"+post.ID+"/"+comments[1].ID, b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &comments)
	require.Len(t, comments, 1)
	require.Equal(t, "second", comments[0].Text)

	w = ts.do(t, http.MethodPost, "/api/posts/comment/missing", b, gin.H{"text": "x"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePostOwnership(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")
	b := ts.register(t, "B", "b@x.com")

	w := ts.do(t, http.MethodPost, "/api/posts", a, gin.H{"text": "hello"})
	var post PostResponse
	decode(t, w, &post)

	w = ts.do(t, http.MethodDelete, "/api/posts/"+post.ID, b, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/posts/"+post.ID, a, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/posts/"+post.ID, a, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPostsNewestFirst(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")
	b := ts.register(t, "B", "b@x.com")

	for _, text := range []string{"one", "two"} {
		require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/posts", a, gin.H{"text": text}).Code)
	}
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/posts", b, gin.H{"text": "three"}).Code)

	var all []PostResponse
	decode(t, ts.do(t, http.MethodGet, "/api/posts", a, nil), &all)
	require.Len(t, all, 3)
	require.Equal(t, "three", all[0].Text)

	var mine []PostResponse
	decode(t, ts.do(t, http.MethodGet, "/api/posts/my", a, nil), &mine)
	require.Len(t, mine, 2)
	require.Equal(t, "two", mine[0].Text)
}

func TestProfileLifecycle(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")

	w := ts.do(t, http.MethodGet, "/api/profile/me", a, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "there is no profile for this user", errorBody(t, w))

	w = ts.do(t, http.MethodPut, "/api/profile/experience", a, gin.H{"title": "dev", "company": "acme", "from": "2020-01-01"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/profile", a, gin.H{"company": "acme"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/profile", a, gin.H{"status": "Developer", "skills": "go, sql ,", "twitter": "https://twitter.com/a"})
	require.Equal(t, http.StatusOK, w.Code)
	var profile ProfileResponse
	decode(t, w, &profile)
	require.Equal(t, []string{"go", "sql"}, profile.Skills)
	require.Equal(t, "A", profile.User.Name)
	require.Equal(t, "https://twitter.com/a", profile.Social.Twitter)

	w = ts.do(t, http.MethodGet, "/api/profile/user/"+profile.User.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var all []ProfileResponse
	decode(t, ts.do(t, http.MethodGet, "/api/profile", "", nil), &all)
	require.Len(t, all, 1)

	w = ts.do(t, http.MethodPut, "/api/profile/experience", a, gin.H{"title": "   ", "company": "  ", "from": "2020-01-01"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "title", firstFieldError(t, w).Field)

	w = ts.do(t, http.MethodPut, "/api/profile/education", a, gin.H{"school": "MIT", "degree": " ", "fieldofstudy": "CS", "from": "2014-09-01"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "degree", firstFieldError(t, w).Field)

	w = ts.do(t, http.MethodPut, "/api/profile/experience", a, gin.H{"title": "dev", "company": "acme", "from": "2020/01/01"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"field":"from"`)

	for _, title := range []string{"junior", "senior"} {
		w = ts.do(t, http.MethodPut, "/api/profile/experience", a, gin.H{"title": title, "company": "acme", "from": "2020-01-01", "to": "2021-06-30"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	decode(t, w, &profile)
	require.Len(t, profile.Experience, 2)
	require.Equal(t, "senior", profile.Experience[0].Title)
	require.NotNil(t, profile.Experience[0].To)
	require.Equal(t, "2021-06-30", *profile.Experience[0].To)

	w = ts.do(t, http.MethodDelete, "/api/profile/experience/"+profile.Experience[0].ID, a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &profile)
	require.Len(t, profile.Experience, 1)
	require.Equal(t, "junior", profile.Experience[0].Title)

	w = ts.do(t, http.MethodDelete, "/api/profile/experience/missing", a, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/api/profile/education", a, gin.H{"school": "MIT", "degree": "BSc", "fieldofstudy": "CS", "from": "2014-09-01", "current": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &profile)
	require.Len(t, profile.Education, 1)
	require.Nil(t, profile.Education[0].To)

	w = ts.do(t, http.MethodDelete, "/api/profile/education/"+profile.Education[0].ID, a, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &profile)
	require.Empty(t, profile.Education)
}

func TestDeleteAccountKeepsPosts(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")
	b := ts.register(t, "B", "b@x.com")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/profile", b, gin.H{"status": "dev", "skills": "go"}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/posts", b, gin.H{"text": "bye"}).Code)

	w := ts.do(t, http.MethodDelete, "/api/profile", b, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/auth", b, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var all []PostResponse
	decode(t, ts.do(t, http.MethodGet, "/api/posts", a, nil), &all)
	require.Len(t, all, 1)
	require.Equal(t, "B", all[0].Name)

	var profiles []ProfileResponse
	decode(t, ts.do(t, http.MethodGet, "/api/profile", "", nil), &profiles)
	require.Empty(t, profiles)
}

func avatarRequest(t *testing.T, token, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.PNG"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/users/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(TokenHeader, token)
	return req
}

func TestAvatarUpload(t *testing.T) {
	ts := newTestServer(t, serverOptions{withMedia: true})
	a := ts.register(t, "A", "a@x.com")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, avatarRequest(t, a, "text/plain", []byte("hello")))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, avatarRequest(t, a, "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var me UserResponse
	decode(t, w, &me)
	require.True(t, strings.HasPrefix(me.Avatar, "https://media.test/avatars/"+me.ID+"/"))
	require.True(t, strings.HasSuffix(me.Avatar, ".png"))

	objs, err := ts.media.ListObjects(context.Background(), "avatars/"+me.ID+"/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
}

func TestAvatarUploadWithoutStorage(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, avatarRequest(t, a, "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServiceValidationNamesField(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	a := ts.register(t, "A", "a@x.com")

	w := ts.do(t, http.MethodPost, "/api/posts", a, gin.H{"text": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fe := firstFieldError(t, w)
	require.Equal(t, "text", fe.Field)
	require.Equal(t, "text is required", fe.Message)
}

func TestRequireAuthSetsIdentity(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	h := &Handler{tokens: ts.tokens}
	token, err := ts.tokens.Issue("user-1")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/who", h.requireAuth(), func(c *gin.Context) {
		v, ok := c.Get(identityKey)
		require.True(t, ok)
		fromCtx, ok := auth.IdentityFrom(c.Request.Context())
		require.True(t, ok)
		require.Equal(t, fromCtx, v)
		c.String(http.StatusOK, currentUserID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(TokenHeader, token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", w.Body.String())
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	ts := newTestServer(t, serverOptions{rateLimit: RateLimitConfig{RPS: 0.001, Burst: 1}})

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		w := ts.doWithHeaders(t, http.MethodPost, "/api/auth", "", gin.H{}, map[string]string{
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1),
			"X-Real-IP":       fmt.Sprintf("198.51.100.%d", i+1),
		})
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestRateLimitOnAuthRoutes(t *testing.T) {
	ts := newTestServer(t, serverOptions{rateLimit: RateLimitConfig{RPS: 0.001, Burst: 1}})

	w := ts.do(t, http.MethodPost, "/api/auth", "", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth", "", gin.H{})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// unlimited routes are unaffected
	w = ts.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
