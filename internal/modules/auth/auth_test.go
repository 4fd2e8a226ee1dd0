package auth

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-meanhost/internal/api"
	"github.com/sirosfoundation/go-meanhost/internal/host"
	"github.com/sirosfoundation/go-meanhost/internal/modules/modulestest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestModule_Registered(t *testing.T) {
	assert.Contains(t, host.ListModules(), Name)
}

func TestModule_RegisterLoginMe(t *testing.T) {
	h := modulestest.Bootstrap(t, modulestest.Config(), Name)
	body := `{"username":"alice","password":"password123"}`

	w := modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/register", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/login", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp api.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	auth := http.Header{"Authorization": {"Bearer " + resp.Token}}
	w = modulestest.Do(h.Handler, http.MethodGet, "/apis/auth/me", "", auth)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/logout", "", auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = modulestest.Do(h.Handler, http.MethodGet, "/apis/auth/me", "", auth)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestModule_LoginFormBody(t *testing.T) {
	h := modulestest.Bootstrap(t, modulestest.Config(), Name)
	require.Equal(t, http.StatusCreated, modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/register",
		`{"username":"alice","password":"password123"}`, nil).Code)

	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	w := modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/login", "username=alice&password=password123", header)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/login", "username=alice", header)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModule_UnknownAuthRoute(t *testing.T) {
	h := modulestest.Bootstrap(t, modulestest.Config(), Name)

	w := modulestest.Do(h.Handler, http.MethodPost, "/apis/auth/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"code 404"}`, w.Body.String())
}
