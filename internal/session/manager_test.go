package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		CookieName: "connect.sid",
		TTLHours:   1,
	}
}

func newTestRouter(t *testing.T, cfg config.SessionConfig) (*gin.Engine, *Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(zap.NewNop())
	mgr := NewManager(store, "test-secret", cfg, zap.NewNop())

	r := gin.New()
	r.Use(mgr.Middleware())
	r.GET("/noop", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/set", func(c *gin.Context) {
		From(c).Set("name", c.Query("v"))
		c.String(http.StatusOK, From(c).ID())
	})
	r.GET("/get", func(c *gin.Context) {
		v, _ := From(c).Get("name")
		c.String(http.StatusOK, v)
	})
	r.GET("/login", func(c *gin.Context) {
		s := From(c)
		s.Regenerate()
		s.SetUserID("user-1")
		c.String(http.StatusOK, s.ID())
	})
	r.GET("/logout", func(c *gin.Context) {
		From(c).Destroy()
		c.Status(http.StatusNoContent)
	})
	return r, mgr, store
}

func doRequest(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestMiddleware_UninitializedNotSaved(t *testing.T) {
	r, _, store := newTestRouter(t, testSessionConfig())

	w := doRequest(r, "/noop")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, sessionCookie(w, "connect.sid"))
	assert.Empty(t, store.sessions)
}

func TestMiddleware_SaveUninitialized(t *testing.T) {
	cfg := testSessionConfig()
	cfg.SaveUninitialized = true
	r, _, store := newTestRouter(t, cfg)

	w := doRequest(r, "/noop")
	cookie := sessionCookie(w, "connect.sid")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Len(t, store.sessions, 1)
}

func TestMiddleware_RoundTrip(t *testing.T) {
	r, _, store := newTestRouter(t, testSessionConfig())

	w := doRequest(r, "/set?v=alice")
	cookie := sessionCookie(w, "connect.sid")
	require.NotNil(t, cookie)
	assert.NotEqual(t, w.Body.String(), cookie.Value, "cookie must carry a signed id")
	assert.Contains(t, store.sessions, w.Body.String())

	w = doRequest(r, "/get", cookie)
	assert.Equal(t, "alice", w.Body.String())
	assert.Nil(t, sessionCookie(w, "connect.sid"), "unchanged session without resave sends no cookie")
}

func TestMiddleware_TamperedCookieStartsNewSession(t *testing.T) {
	r, _, _ := newTestRouter(t, testSessionConfig())

	w := doRequest(r, "/set?v=alice")
	cookie := sessionCookie(w, "connect.sid")
	require.NotNil(t, cookie)

	cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
	w = doRequest(r, "/get", cookie)
	assert.Empty(t, w.Body.String())
}

func TestMiddleware_ResaveRefreshesCookie(t *testing.T) {
	cfg := testSessionConfig()
	cfg.Resave = true
	r, mgr, store := newTestRouter(t, cfg)

	w := doRequest(r, "/set?v=bob")
	cookie := sessionCookie(w, "connect.sid")
	require.NotNil(t, cookie)
	id := w.Body.String()

	later := time.Now().Add(30 * time.Minute)
	mgr.now = func() time.Time { return later }

	w = doRequest(r, "/get", cookie)
	assert.Equal(t, "bob", w.Body.String())
	assert.NotNil(t, sessionCookie(w, "connect.sid"))
	assert.WithinDuration(t, later.Add(time.Hour), store.sessions[id].ExpiresAt, time.Second)
}

func TestMiddleware_RegenerateReplacesRecord(t *testing.T) {
	r, _, store := newTestRouter(t, testSessionConfig())

	w := doRequest(r, "/set?v=carol")
	cookie := sessionCookie(w, "connect.sid")
	require.NotNil(t, cookie)
	oldID := w.Body.String()

	w = doRequest(r, "/login", cookie)
	newID := w.Body.String()
	assert.NotEqual(t, oldID, newID)
	assert.NotNil(t, sessionCookie(w, "connect.sid"))
	assert.NotContains(t, store.sessions, oldID)
	require.Contains(t, store.sessions, newID)
	assert.Equal(t, "user-1", store.sessions[newID].UserID)
	assert.Empty(t, store.sessions[newID].Values, "regenerate starts from an empty session")
}

func TestMiddleware_DestroyClearsCookie(t *testing.T) {
	r, _, store := newTestRouter(t, testSessionConfig())

	w := doRequest(r, "/login")
	cookie := sessionCookie(w, "connect.sid")
	require.NotNil(t, cookie)

	w = doRequest(r, "/logout", cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)
	cleared := sessionCookie(w, "connect.sid")
	require.NotNil(t, cleared)
	assert.True(t, cleared.MaxAge < 0)
	assert.Empty(t, store.sessions)
}

type failingStore struct {
	*MemoryStore
}

func (f failingStore) Get(ctx context.Context, id string) (*Data, error) {
	return nil, assert.AnError
}

func TestMiddleware_StoreErrorAborts(t *testing.T) {
	mem := NewMemoryStore(zap.NewNop())
	mgr := NewManager(failingStore{mem}, "test-secret", testSessionConfig(), zap.NewNop())

	cookie, err := mgr.codec.Encode("connect.sid", "some-id")
	require.NoError(t, err)

	var errs []*gin.Error
	reached := false
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		errs = c.Errors
	})
	r.Use(mgr.Middleware())
	r.GET("/", func(c *gin.Context) { reached = true })

	doRequest(r, "/", &http.Cookie{Name: "connect.sid", Value: cookie})
	assert.False(t, reached)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, assert.AnError)
}

func TestFrom_WithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, From(c))
}

func TestMiddleware_RegenerateUsesManagerClock(t *testing.T) {
	r, mgr, store := newTestRouter(t, testSessionConfig())

	pinned := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	mgr.now = func() time.Time { return pinned }

	w := doRequest(r, "/login")
	id := w.Body.String()
	require.Contains(t, store.sessions, id)
	assert.True(t, store.sessions[id].CreatedAt.Equal(pinned))
	assert.True(t, store.sessions[id].ExpiresAt.Equal(pinned.Add(time.Hour)))
}
