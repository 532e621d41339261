package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/handler"
	"github.com/devsapp/serverless-automl-api/pkg/worker"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AgentServer the function side: runs one unit of training work per invocation
type AgentServer struct {
	srv     *http.Server
	backend *Backend
}

func NewAgentServer(port string, dbType datastore.DatastoreType, conf *config.Config) (*AgentServer, error) {
	backend, err := NewBackend(conf, dbType)
	if err != nil {
		logrus.Errorf("backend init error %v", err)
		return nil, err
	}
	return &AgentServer{
		srv: &http.Server{
			Addr:    net.JoinHostPort("0.0.0.0", port),
			Handler: NewAgentRouter(backend),
		},
		backend: backend,
	}, nil
}

func NewAgentRouter(backend *Backend) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	agentHandler := handler.NewAgentHandler(worker.NewRunner(backend.Store, nil), backend.Store)
	router.GET("/health", handler.Health)
	router.POST("/invoke", agentHandler.Invoke)
	return router
}

// Start agent server
func (p *AgentServer) Start() error {
	if err := p.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Fatalf("listen: %s\n", err)
		return err
	}
	return nil
}

// Close shutdown agent server, timeout=shutdownTimeout
func (p *AgentServer) Close(shutdownTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := p.srv.Shutdown(ctx)
	p.backend.Close()
	if err != nil {
		logrus.Error("Server forced to shutdown: ", err)
		return err
	}
	return nil
}
