package models

import "time"

type TrainingConfig struct {
	TimeBudget int    `json:"timeBudget,omitempty"`
	Metric     string `json:"metric,omitempty"`
}

type Feature struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Categories []string `json:"categories,omitempty"`
}

// PreprocessingInfo feature schema the model expects
type PreprocessingInfo struct {
	FeatureColumns []string  `json:"featureColumns"`
	Features       []Feature `json:"features"`
	TargetColumn   string    `json:"targetColumn"`
	TargetClasses  []string  `json:"targetClasses,omitempty"`
	TrainRows      int       `json:"trainRows,omitempty"`
	TestRows       int       `json:"testRows,omitempty"`
}

// JobResponse job snapshot. ModelURL, AlternateModelURL and ReportURLs are
// presigned links that expire, see client.Merge.
type JobResponse struct {
	JobID             string             `json:"jobId"`
	Status            string             `json:"status"`
	DatasetID         string             `json:"datasetId,omitempty"`
	DatasetName       string             `json:"datasetName,omitempty"`
	TargetColumn      string             `json:"targetColumn,omitempty"`
	ProblemType       string             `json:"problemType,omitempty"`
	Config            *TrainingConfig    `json:"config,omitempty"`
	ExecutionID       string             `json:"executionId,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	StartedAt         *time.Time         `json:"startedAt,omitempty"`
	CompletedAt       *time.Time         `json:"completedAt,omitempty"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	DeployedAt        *time.Time         `json:"deployedAt,omitempty"`
	Deployed          bool               `json:"deployed"`
	Metrics           map[string]float64 `json:"metrics,omitempty"`
	Tags              []string           `json:"tags"`
	Notes             string             `json:"notes,omitempty"`
	PreprocessingInfo *PreprocessingInfo `json:"preprocessingInfo,omitempty"`
	ModelURL          string             `json:"modelUrl,omitempty"`
	AlternateModelURL string             `json:"alternateModelUrl,omitempty"`
	ReportURLs        map[string]string  `json:"reportUrls,omitempty"`
	ErrorMessage      string             `json:"errorMessage,omitempty"`
}

// Terminal completed or failed
func (j *JobResponse) Terminal() bool {
	return j.Status == "completed" || j.Status == "failed"
}

type JobSummary struct {
	JobID              string    `json:"jobId"`
	Status             string    `json:"status"`
	DatasetName        string    `json:"datasetName,omitempty"`
	TargetColumn       string    `json:"targetColumn,omitempty"`
	ProblemType        string    `json:"problemType,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	Deployed           bool      `json:"deployed"`
	Tags               []string  `json:"tags"`
	PrimaryMetric      string    `json:"primaryMetric,omitempty"`
	PrimaryMetricValue *float64  `json:"primaryMetricValue,omitempty"`
}

type JobListResponse struct {
	Jobs      []*JobSummary `json:"jobs"`
	NextToken string        `json:"nextToken,omitempty"`
}

type TrainRequest struct {
	DatasetID    string          `json:"datasetId"`
	TargetColumn string          `json:"targetColumn"`
	Config       *TrainingConfig `json:"config,omitempty"`
}

type TrainResponse struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	EstimatedTime int    `json:"estimatedTime"`
}

// UpdateJobRequest omitted fields are left untouched
type UpdateJobRequest struct {
	Tags  *[]string `json:"tags,omitempty"`
	Notes *string   `json:"notes,omitempty"`
}

type DeleteJobResponse struct {
	JobID   string   `json:"jobId"`
	Deleted bool     `json:"deleted"`
	Removed []string `json:"removed"`
	Failed  []string `json:"failed"`
}

type DeployRequest struct {
	Action string `json:"action"` // deploy|undeploy
}

type DeployResponse struct {
	JobID      string     `json:"jobId"`
	Status     string     `json:"status"`
	Deployed   bool       `json:"deployed"`
	DeployedAt *time.Time `json:"deployedAt,omitempty"`
}

// ErrorResponse Job is set when the request left a job behind, e.g. a failed submission
type ErrorResponse struct {
	Message string       `json:"message"`
	Job     *JobResponse `json:"job,omitempty"`
}

// InvokeRequest body of the worker invocation
type InvokeRequest struct {
	JobID string `json:"jobId"`
}
