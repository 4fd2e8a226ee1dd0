package admin

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-meanhost/internal/domain"
	"github.com/sirosfoundation/go-meanhost/internal/engine"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	_ "github.com/sirosfoundation/go-meanhost/internal/modules/auth"
	"github.com/sirosfoundation/go-meanhost/internal/modules/modulestest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const adminToken = "admin-test-token"

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func bootstrapWithAdmin(t *testing.T) (*modulestest.Host, http.Handler) {
	t.Helper()
	cfg := modulestest.Config()
	cfg.Admin.Port = freePort(t)
	cfg.Admin.Token = adminToken

	h := modulestest.Bootstrap(t, cfg, "auth", Name)
	l, ok := h.Engine.Servers().Get(engine.DepAdmin)
	require.True(t, ok)
	return h, l.Server.Handler
}

func authorized() http.Header {
	return http.Header{"Authorization": {"Bearer " + adminToken}}
}

func TestModule_Registered(t *testing.T) {
	assert.Contains(t, host.ListModules(), Name)
}

func TestModule_DisabledWithoutListener(t *testing.T) {
	h := modulestest.Bootstrap(t, modulestest.Config(), Name)
	assert.False(t, h.Instance.Has(engine.DepAdmin))

	w := modulestest.Do(h.Handler, http.MethodGet, "/admin/status", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "admin routes must not leak onto the app")
}

func TestModule_RequiresToken(t *testing.T) {
	_, admin := bootstrapWithAdmin(t)

	w := modulestest.Do(admin, http.MethodGet, "/admin/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = modulestest.Do(admin, http.MethodGet, "/admin/status", "", http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = modulestest.Do(admin, http.MethodGet, "/admin/status", "", authorized())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"meanhost-test-admin","modules":["auth","admin"]}`, w.Body.String())
}

func TestModule_RevokeSessionsLogsUserOut(t *testing.T) {
	h, admin := bootstrapWithAdmin(t)

	w := modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/register",
		`{"username":"alice","password":"password123"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg struct {
		User *domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	cookies := http.Header{}
	for _, ck := range w.Result().Cookies() {
		cookies.Add("Cookie", ck.Name+"="+ck.Value)
	}
	require.Equal(t, http.StatusOK, modulestest.Do(h.Handler, http.MethodGet, "/apis/auth/me", "", cookies).Code)

	w = modulestest.Do(admin, http.MethodDelete, "/admin/users/"+reg.User.ID.String()+"/sessions", "", authorized())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions_revoked":1}`, w.Body.String())

	w = modulestest.Do(h.Handler, http.MethodGet, "/apis/auth/me", "", cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestModule_UserManagement(t *testing.T) {
	_, admin := bootstrapWithAdmin(t)

	w := modulestest.Do(admin, http.MethodPost, "/admin/users",
		`{"username":"root","password":"password123","roles":["admin"]}`, authorized())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		User *domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = modulestest.Do(admin, http.MethodGet, "/admin/users", "", authorized())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"root"`)

	w = modulestest.Do(admin, http.MethodDelete, "/admin/users/"+created.User.ID.String(), "", authorized())
	assert.Equal(t, http.StatusOK, w.Code)

	w = modulestest.Do(admin, http.MethodGet, "/admin/unknown", "", authorized())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
