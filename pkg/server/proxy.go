package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/executor"
	"github.com/devsapp/serverless-automl-api/pkg/handler"
	"github.com/devsapp/serverless-automl-api/pkg/inference"
	"github.com/devsapp/serverless-automl-api/pkg/stream"
	"github.com/devsapp/serverless-automl-api/pkg/training"
	"github.com/devsapp/serverless-automl-api/pkg/worker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/mcuadros/go-gin-prometheus"
	"github.com/sirupsen/logrus"
)

var (
	promOnce sync.Once
	prom     *ginprometheus.Prometheus
)

type ProxyServer struct {
	srv      *http.Server
	backend  *Backend
	listener *inference.CacheListener
}

func NewProxyServer(port string, dbType datastore.DatastoreType, conf *config.Config) (*ProxyServer, error) {
	backend, err := NewBackend(conf, dbType)
	if err != nil {
		logrus.Errorf("backend init error %v", err)
		return nil, err
	}
	cache := inference.NewModelCache(conf.ModelCacheSize, conf.ColdStartConcurrency)
	router, err := NewProxyRouter(backend, cache, conf)
	if err != nil {
		backend.Close()
		return nil, err
	}
	proxy := &ProxyServer{
		srv: &http.Server{
			Addr:    net.JoinHostPort("0.0.0.0", port),
			Handler: router,
		},
		backend: backend,
	}
	if interval := conf.GetCacheSweepInterval(); interval > 0 {
		proxy.listener = inference.NewCacheListener(backend.Store, cache, interval)
		proxy.listener.Start()
	}
	return proxy, nil
}

// NewProxyRouter wire coordinator, inference and streaming over the backend
func NewProxyRouter(backend *Backend, cache *inference.ModelCache, conf *config.Config) (*gin.Engine, error) {
	store := backend.Store
	exec, err := executor.New(conf, worker.NewRunner(store, nil))
	if err != nil {
		logrus.Errorf("executor init error %v", err)
		return nil, err
	}
	proxyHandler := handler.NewProxyHandler(store,
		training.NewCoordinator(store, exec),
		inference.NewService(store, cache, conf),
		stream.NewStreamer(store, conf.GetStreamInterval(), conf.GetStreamMaxDuration()),
		conf)

	// init router
	if conf.Mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "X-Api-Key"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(gin.Logger(), gin.Recovery())
	promOnce.Do(func() {
		prom = ginprometheus.NewPrometheus("gin")
	})
	prom.Use(router)
	router.GET("/health", handler.Health)

	api := router.Group("/")
	// auth permission check
	if conf.EnableApiKey() {
		api.Use(handler.ApiAuth(conf))
	}
	if conf.RequestValidation {
		validator, err := handler.RequestValidator()
		if err != nil {
			logrus.Errorf("request validator init error %v", err)
			return nil, err
		}
		api.Use(validator)
	}
	handler.RegisterHandlers(api, proxyHandler)
	router.NoRoute(proxyHandler.NoRouterHandler)
	return router, nil
}

// Start proxy server
func (p *ProxyServer) Start() error {
	if err := p.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Fatalf("listen: %s\n", err)
		return err
	}
	return nil
}

// Close shutdown proxy server, timeout=shutdownTimeout
func (p *ProxyServer) Close(shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := p.srv.Shutdown(ctx)
	if p.listener != nil {
		p.listener.Close()
	}
	p.backend.Close()
	if err != nil {
		logrus.Error("Server forced to shutdown: ", err)
		return err
	}
	return nil
}
