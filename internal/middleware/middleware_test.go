package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/naturants/internal/apperr"
	"github.com/iliyamo/naturants/internal/cache"
	"github.com/iliyamo/naturants/internal/config"
	"github.com/iliyamo/naturants/internal/model"
)

var errNoToken = apperr.Unauthorized("Unauthorized - Please log in")

type fakeAuth struct {
	tokens map[string]model.Identity
	seen   []string
}

func (f *fakeAuth) Authenticate(_ context.Context, raw string) (model.Identity, error) {
	f.seen = append(f.seen, raw)
	if raw == "" {
		return model.Identity{}, errNoToken
	}
	id, ok := f.tokens[raw]
	if !ok {
		return model.Identity{}, apperr.Unauthorized("Invalid token - Please log in")
	}
	return id, nil
}

func newContext(method, target string, header http.Header) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"", ""},
		{"Bearer", ""},
		{"Bearer ", ""},
		{"Basic dXNlcjpwYXNz", ""},
		{"abc.def.ghi", ""},
		{"Bearer a b", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bearerToken(tt.header), "header %q", tt.header)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	alice := model.Identity{ID: 7, Username: "alice", Role: model.RoleUser}
	auth := &fakeAuth{tokens: map[string]model.Identity{"good": alice}}
	mw := Authenticate(auth)

	var got model.Identity
	var fromCtx model.Identity
	next := func(c echo.Context) error {
		got, _ = IdentityFrom(c)
		fromCtx, _ = IdentityFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}

	c, rec := newContext(http.MethodGet, "/", http.Header{"Authorization": {"Bearer good"}})
	require.NoError(t, mw(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice, got)
	assert.Equal(t, alice, fromCtx)

	c, _ = newContext(http.MethodGet, "/", nil)
	assert.Same(t, errNoToken, mw(next)(c))

	c, _ = newContext(http.MethodGet, "/", http.Header{"Authorization": {"Token good"}})
	assert.Same(t, errNoToken, mw(next)(c), "malformed header counts as missing")

	c, _ = newContext(http.MethodGet, "/", http.Header{"Authorization": {"Bearer forged"}})
	err := mw(next)(c)
	require.Error(t, err)
	assert.Equal(t, "Invalid token - Please log in", apperr.From(err).Message)
	_, attached := IdentityFrom(c)
	assert.False(t, attached)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()
	mw := RequireRole(model.RoleAdmin, model.RoleManager)
	called := false
	next := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}

	c, _ := newContext(http.MethodDelete, "/", nil)
	setIdentity(c, model.Identity{ID: 1, Role: model.RoleUser})
	err := mw(next)(c)
	assert.Same(t, ErrPermissionDenied, err)
	assert.Equal(t, http.StatusForbidden, apperr.From(err).Status)
	assert.False(t, called)

	c, rec := newContext(http.MethodDelete, "/", nil)
	setIdentity(c, model.Identity{ID: 2, Role: model.RoleManager})
	require.NoError(t, mw(next)(c))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = newContext(http.MethodDelete, "/", nil)
	err = mw(next)(c)
	assert.Same(t, ErrNotLoggedIn, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.From(err).Status)
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "naturants",
		MaxBodyBytes: 1 << 20,
	}
}

func TestResponseCache(t *testing.T) {
	t.Parallel()
	store := cache.NewMemory()
	cfg := cacheConfig()
	mw := ResponseCache(cfg, store, "naturants", zap.NewNop())

	calls := 0
	list := mw(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"status": "success", "results": calls})
	})

	c, rec := newContext(http.MethodGet, "/api/v1/naturants?page=2", nil)
	require.NoError(t, list(c))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	first := rec.Body.String()

	c, rec = newContext(http.MethodGet, "/api/v1/naturants?page=2", nil)
	require.NoError(t, list(c))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, first, rec.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	c, rec = newContext(http.MethodGet, "/api/v1/naturants?page=3", nil)
	require.NoError(t, list(c))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "different query, different key")
	assert.Equal(t, 2, calls)

	create := mw(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	c, _ = newContext(http.MethodPost, "/api/v1/naturants", nil)
	require.NoError(t, create(c))

	c, rec = newContext(http.MethodGet, "/api/v1/naturants?page=2", nil)
	require.NoError(t, list(c))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "writes flush the group")
	assert.Equal(t, 3, calls)
}

func TestResponseCache_SkipsErrorsAndNoop(t *testing.T) {
	t.Parallel()
	store := cache.NewMemory()
	mw := ResponseCache(cacheConfig(), store, "naturants", zap.NewNop())

	calls := 0
	h := mw(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Naturant not found"})
	})
	for i := 0; i < 2; i++ {
		c, _ := newContext(http.MethodGet, "/api/v1/naturants/9", nil)
		require.NoError(t, h(c))
	}
	assert.Equal(t, 2, calls)

	passthrough := ResponseCache(cacheConfig(), cache.Noop{}, "naturants", zap.NewNop())
	c, rec := newContext(http.MethodGet, "/", nil)
	require.NoError(t, passthrough(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestBuildRateKey(t *testing.T) {
	t.Parallel()
	c, _ := newContext(http.MethodGet, "/api/v1/naturants", http.Header{"X-Real-Ip": {"203.0.113.9"}})
	c.SetPath("/api/v1/naturants")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:203.0.113.9", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:guest", buildRateKey(cfg, c))

	setIdentity(c, model.Identity{ID: 42, Role: model.RoleUser})
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "rl:ip:203.0.113.9:user:42", buildRateKey(cfg, c))

	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:route:GET /api/v1/naturants", buildRateKey(cfg, c))
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	t.Parallel()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop())
	c, rec := newContext(http.MethodGet, "/", nil)
	require.NoError(t, mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.JSON(apperr.From(err).Status, echo.Map{"error": apperr.From(err).Message})
	}
	mw := RequestLogger(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(func(echo.Context) error { return errors.New("db down") })(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[0].ContextMap()["status"])
	assert.Equal(t, "/api/v1/reviews", entries[0].ContextMap()["path"])
}
