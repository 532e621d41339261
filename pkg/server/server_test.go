package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/inference"
	"github.com/devsapp/serverless-automl-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig() *config.Config {
	conf := config.DefaultConfig()
	conf.DbSqlite = ":memory:"
	conf.ObjectStoreType = config.STORE_MEMORY
	conf.ExecutorType = config.EXECUTOR_LOCAL
	return conf
}

func serve(router http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProxyRouter(t *testing.T) {
	conf := localConfig()
	hash, err := utils.EncryptApiKey("key")
	require.NoError(t, err)
	conf.ApiKeyHash = hash
	backend, err := NewBackend(conf, datastore.SQLite)
	require.NoError(t, err)
	defer backend.Close()

	router, err := NewProxyRouter(backend, inference.NewModelCache(2, 1), conf)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/jobs", nil).Code)

	w := serve(router, http.MethodGet, "/jobs", map[string]string{"X-Api-Key": "key"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())

	w = serve(router, http.MethodOptions, "/jobs", map[string]string{
		"Origin":                        "http://console.local",
		"Access-Control-Request-Method": "GET",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "automl_"))

	// a second router shares the collectors
	_, err = NewProxyRouter(backend, inference.NewModelCache(2, 1), conf)
	assert.NoError(t, err)
}

func TestProxyRouterBadExecutor(t *testing.T) {
	conf := localConfig()
	conf.ExecutorType = "batch"
	backend, err := NewBackend(conf, datastore.SQLite)
	require.NoError(t, err)
	defer backend.Close()
	_, err = NewProxyRouter(backend, inference.NewModelCache(2, 1), conf)
	assert.Error(t, err)
}

func TestAgentRouter(t *testing.T) {
	backend, err := NewBackend(localConfig(), datastore.SQLite)
	require.NoError(t, err)
	defer backend.Close()
	router := NewAgentRouter(backend)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", nil).Code)
	req := httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(`{"jobId":"missing"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProxyServerLifecycle(t *testing.T) {
	conf := localConfig()
	conf.CacheSweepInterval = 1
	proxy, err := NewProxyServer("0", datastore.SQLite, conf)
	require.NoError(t, err)
	require.NotNil(t, proxy.listener)
	assert.NoError(t, proxy.Close(time.Second))
}
