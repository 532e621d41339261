package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/devsapp/serverless-automl-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommand(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/jobs/:jobId", func(c *gin.Context) {
		status := "completed"
		if c.Param("jobId") == "job-bad" {
			status = "failed"
		}
		c.JSON(http.StatusOK, &models.JobResponse{JobID: c.Param("jobId"), Status: status, ErrorMessage: "boom"})
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"watch", "job-1", "--endpoint", srv.URL, "--no-push", "--poll-interval", "1ms"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "[poll] job-1 completed")
	assert.Contains(t, out.String(), `"jobId": "job-1"`)

	rootCmd.SetArgs([]string{"watch", "job-bad", "--endpoint", srv.URL, "--no-push"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job job-bad failed: boom")
}

func TestHashKeyCommand(t *testing.T) {
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"hash-key", "s3cret"})
	require.NoError(t, rootCmd.Execute())
	hash := strings.TrimSpace(out.String())
	assert.True(t, utils.MatchApiKey("s3cret", hash))
}
