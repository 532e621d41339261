package handler

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/inference"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/devsapp/serverless-automl-api/pkg/search"
	"github.com/devsapp/serverless-automl-api/pkg/stream"
	"github.com/devsapp/serverless-automl-api/pkg/training"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxFilenameLength = 200

// ProxyHandler the control plane api
type ProxyHandler struct {
	store       *job.Store
	coordinator *training.Coordinator
	inference   *inference.Service
	streamer    *stream.Streamer
	objects     objectstore.ObjectStore
	conf        *config.Config
}

func NewProxyHandler(store *job.Store, coordinator *training.Coordinator,
	inferenceService *inference.Service, streamer *stream.Streamer, conf *config.Config) *ProxyHandler {
	return &ProxyHandler{
		store:       store,
		coordinator: coordinator,
		inference:   inferenceService,
		streamer:    streamer,
		objects:     store.Objects(),
		conf:        conf,
	}
}

// RegisterHandlers api routes of p on router
func RegisterHandlers(router gin.IRouter, p *ProxyHandler) {
	router.POST("/upload", p.Upload)
	router.POST("/datasets/:datasetId/confirm", p.ConfirmDataset)
	router.GET("/datasets/:datasetId", p.GetDataset)
	router.POST("/train", p.Train)
	router.GET("/jobs", p.ListJobs)
	router.GET("/jobs/:jobId", p.GetJob)
	router.PATCH("/jobs/:jobId", p.UpdateJob)
	router.DELETE("/jobs/:jobId", p.DeleteJob)
	router.GET("/jobs/:jobId/stream", p.StreamJob)
	router.POST("/jobs/:jobId/deploy", p.DeployJob)
	router.POST("/predict/:jobId", p.Predict)
	router.GET("/predict/:jobId/info", p.PredictInfo)
}

// Health liveness
// (GET /health)
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Upload presigned PUT url of a new dataset
// (POST /upload)
func (p *ProxyHandler) Upload(c *gin.Context) {
	request := new(models.UploadRequest)
	if err := getBindResult(c, request); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	filename := strings.TrimSpace(request.Filename)
	if filename == "" || filename != path.Base(filename) || len(filename) > maxFilenameLength {
		handleError(c, http.StatusBadRequest, "invalid filename")
		return
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		handleError(c, http.StatusBadRequest, "only csv datasets are supported")
		return
	}
	datasetId := uuid.New().String()
	key := path.Join(config.DATASET_PREFIX, datasetId, filename)
	url, err := p.objects.SignURL(c.Request.Context(), key, objectstore.MethodPut, p.conf.GetPresignExpire())
	if err != nil {
		respondError(c, fmt.Errorf("sign upload url: %w", err))
		return
	}
	c.JSON(http.StatusOK, &models.UploadResponse{
		DatasetID: datasetId,
		ObjectKey: key,
		UploadURL: url,
		ExpiresIn: p.conf.PresignExpire,
	})
}

// ConfirmDataset read the uploaded csv and register the dataset
// (POST /datasets/{datasetId}/confirm)
func (p *ProxyHandler) ConfirmDataset(c *gin.Context) {
	ctx := c.Request.Context()
	datasetId := c.Param(datasetIdKey)
	keys, err := p.objects.List(ctx, path.Join(config.DATASET_PREFIX, datasetId)+"/")
	if err != nil {
		respondError(c, err)
		return
	}
	if len(keys) == 0 {
		respondError(c, errdefs.NotFoundf("no uploaded file for dataset %s", datasetId))
		return
	}
	key := keys[0]
	body, err := p.objects.Get(ctx, key)
	if err != nil {
		respondError(c, fmt.Errorf("download %s: %w", key, err))
		return
	}
	description, err := search.Describe(body, config.DATASET_SAMPLE_ROWS)
	if err != nil {
		respondError(c, errdefs.Validationf("%v", err))
		return
	}
	dataset := &job.Dataset{
		ID:          datasetId,
		Filename:    path.Base(key),
		ObjectKey:   key,
		Size:        int64(len(body)),
		Rows:        description.Rows,
		Columns:     description.Columns,
		ColumnTypes: description.ColumnTypes,
	}
	if err := p.store.RegisterDataset(ctx, dataset); err != nil {
		respondError(c, err)
		return
	}
	logrus.Infof("dataset %s confirmed, %d rows", datasetId, dataset.Rows)
	c.JSON(http.StatusOK, datasetResponse(dataset))
}

// GetDataset dataset metadata
// (GET /datasets/{datasetId})
func (p *ProxyHandler) GetDataset(c *gin.Context) {
	dataset, err := p.store.GetDataset(c.Request.Context(), c.Param(datasetIdKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, datasetResponse(dataset))
}

// Train submit a training job
// (POST /train)
func (p *ProxyHandler) Train(c *gin.Context) {
	request := new(models.TrainRequest)
	if err := getBindResult(c, request); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	spec := job.CreateSpec{DatasetID: request.DatasetID, TargetColumn: request.TargetColumn}
	if request.Config != nil {
		spec.Config = &job.TrainingConfig{TimeBudget: request.Config.TimeBudget, Metric: request.Config.Metric}
	}
	ctx := c.Request.Context()
	j, err := p.coordinator.Submit(ctx, spec)
	if err != nil {
		if errdefs.IsSubmission(err) && j != nil {
			respondJobError(c, err, p.jobResponse(ctx, j))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, &models.TrainResponse{
		JobID:         j.ID,
		Status:        string(j.Status),
		EstimatedTime: training.EstimatedTime(j),
	})
}

// ListJobs newest first
// (GET /jobs?limit=&nextToken=&tag=)
func (p *ProxyHandler) ListJobs(c *gin.Context) {
	opts := job.ListOptions{NextToken: c.Query("nextToken"), Tag: c.Query("tag")}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			handleError(c, http.StatusBadRequest, "limit must be an integer")
			return
		}
		opts.Limit = n
	}
	result, err := p.store.List(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := &models.JobListResponse{Jobs: make([]*models.JobSummary, 0, len(result.Jobs)), NextToken: result.NextToken}
	for _, j := range result.Jobs {
		resp.Jobs = append(resp.Jobs, jobSummary(j))
	}
	c.JSON(http.StatusOK, resp)
}

// GetJob job snapshot, consistent=true reads around the snapshot cache
// (GET /jobs/{jobId})
func (p *ProxyHandler) GetJob(c *gin.Context) {
	consistency := job.BestEffort
	if strong, _ := strconv.ParseBool(c.Query("consistent")); strong {
		consistency = job.Strong
	}
	ctx := c.Request.Context()
	j, err := p.store.Get(ctx, c.Param(jobIdKey), consistency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.jobResponse(ctx, j))
}

// UpdateJob tags and notes only
// (PATCH /jobs/{jobId})
func (p *ProxyHandler) UpdateJob(c *gin.Context) {
	request := new(models.UpdateJobRequest)
	if err := getBindResult(c, request); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	ctx := c.Request.Context()
	j, err := p.store.UpdateMetadata(ctx, c.Param(jobIdKey), job.MetadataUpdate{
		Tags:  request.Tags,
		Notes: request.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.jobResponse(ctx, j))
}

// DeleteJob purge=false keeps the artifacts
// (DELETE /jobs/{jobId}?purge=)
func (p *ProxyHandler) DeleteJob(c *gin.Context) {
	purge := true
	if v := c.Query("purge"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			handleError(c, http.StatusBadRequest, "purge must be true or false")
			return
		}
		purge = b
	}
	id := c.Param(jobIdKey)
	ctx := c.Request.Context()
	result, err := p.store.Delete(ctx, id, purge)
	if err != nil {
		respondError(c, err)
		return
	}
	p.inference.Forget(id)
	c.JSON(http.StatusOK, &models.DeleteJobResponse{
		JobID:   id,
		Deleted: true,
		Removed: result.Removed,
		Failed:  result.Failed,
	})
}

// DeployJob deploy or undeploy
// (POST /jobs/{jobId}/deploy)
func (p *ProxyHandler) DeployJob(c *gin.Context) {
	request := new(models.DeployRequest)
	if err := getBindResult(c, request); err != nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	var (
		j   *job.Job
		err error
	)
	ctx := c.Request.Context()
	switch request.Action {
	case "deploy":
		j, err = p.inference.Deploy(ctx, c.Param(jobIdKey))
	case "undeploy":
		j, err = p.inference.Undeploy(ctx, c.Param(jobIdKey))
	default:
		handleError(c, http.StatusBadRequest, "action must be deploy or undeploy")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, &models.DeployResponse{
		JobID:      j.ID,
		Status:     string(j.Status),
		Deployed:   j.Deployed,
		DeployedAt: j.DeployedAt,
	})
}

// Predict with a deployed model
// (POST /predict/{jobId})
func (p *ProxyHandler) Predict(c *gin.Context) {
	request := new(models.PredictRequest)
	if err := getBindResult(c, request); err != nil || request.Features == nil {
		handleError(c, http.StatusBadRequest, config.BADREQUEST)
		return
	}
	start := time.Now()
	id := c.Param(jobIdKey)
	result, err := p.inference.Predict(c.Request.Context(), id, request.Features)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := predictResponse(id, result)
	resp.InferenceTimeMs = float64(time.Since(start).Microseconds()) / 1000
	c.JSON(http.StatusOK, resp)
}

// PredictInfo expected request of a completed job
// (GET /predict/{jobId}/info)
func (p *ProxyHandler) PredictInfo(c *gin.Context) {
	info, err := p.inference.PredictInfo(c.Request.Context(), c.Param(jobIdKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, predictInfoResponse(info))
}

func (p *ProxyHandler) NoRouterHandler(c *gin.Context) {
	handleError(c, http.StatusNotFound, config.NOTFOUND)
}
