package handler

import (
	"net/http"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/devsapp/serverless-automl-api/pkg/worker"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AgentHandler runs the unit of work inside a function instance
type AgentHandler struct {
	runner *worker.Runner
	store  *job.Store
}

func NewAgentHandler(runner *worker.Runner, store *job.Store) *AgentHandler {
	return &AgentHandler{runner: runner, store: store}
}

// Invoke run one training job to its end. A job failure is recorded on the
// job and answered with 200 so the platform does not retry the invocation.
// (POST /invoke)
func (a *AgentHandler) Invoke(c *gin.Context) {
	request := new(models.InvokeRequest)
	if err := getBindResult(c, request); err != nil || request.JobID == "" {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	entry := logrus.WithFields(logrus.Fields{"jobId": request.JobID})
	entry.Infof("invoke, type=%s", c.GetHeader(FcAsyncKey))
	ctx := c.Request.Context()
	runErr := a.runner.Run(ctx, request.JobID)
	j, err := a.store.Get(ctx, request.JobID, job.Strong)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"jobId": j.ID, "status": j.Status}
	if runErr != nil {
		entry.Errorf("run: %v", runErr)
		resp["message"] = j.ErrorMessage
	}
	c.JSON(http.StatusOK, resp)
}
