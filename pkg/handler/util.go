package handler

import (
	"net/http"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
)

const (
	jobIdKey     = "jobId"
	datasetIdKey = "datasetId"
	apiKeyHeader = "X-Api-Key"
	FcAsyncKey   = "X-Fc-Invocation-Type"
)

func getBindResult(c *gin.Context, in interface{}) error {
	if err := binding.JSON.Bind(c.Request, in); err != nil {
		return err
	}
	return nil
}

func handleError(c *gin.Context, code int, err string) {
	c.JSON(code, gin.H{"message": err})
}

// errorStatus http code of an error by its kind
func errorStatus(err error) int {
	switch errdefs.KindOf(err) {
	case errdefs.KindValidation, errdefs.KindNotDeployed:
		return http.StatusBadRequest
	case errdefs.KindNotFound:
		return http.StatusNotFound
	case errdefs.KindState:
		return http.StatusConflict
	case errdefs.KindSubmission:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		logrus.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		handleError(c, code, config.INTERNALERROR)
		return
	}
	handleError(c, code, err.Error())
}

// respondJobError failure that still left a job behind, the body carries it
func respondJobError(c *gin.Context, err error, j *models.JobResponse) {
	c.JSON(errorStatus(err), &models.ErrorResponse{Message: err.Error(), Job: j})
}
