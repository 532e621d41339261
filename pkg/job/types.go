package job

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal completed or failed, no transition leaves it
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type ProblemType string

const (
	ProblemClassification ProblemType = "classification"
	ProblemRegression     ProblemType = "regression"
)

type Consistency int

const (
	// BestEffort may be served by a short lived process snapshot
	BestEffort Consistency = iota
	// Strong always reflects the latest acknowledged write
	Strong
)

// column types of a dataset and of a feature
const (
	ColumnNumeric     = "numeric"
	ColumnCategorical = "categorical"
)

const DefaultMetric = "auto"

type TrainingConfig struct {
	TimeBudget int    `json:"timeBudget"` // second
	Metric     string `json:"metric"`
}

// Artifacts object store keys produced by a completed job
type Artifacts struct {
	ModelKey          string            `json:"modelKey,omitempty"`
	AlternateModelKey string            `json:"alternateModelKey,omitempty"`
	ReportKeys        map[string]string `json:"reportKeys,omitempty"`
}

type Feature struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Categories []string `json:"categories,omitempty"`
}

// FeatureSchema preprocessing info the model expects at predict time
type FeatureSchema struct {
	Features      []Feature `json:"features"`
	TargetColumn  string    `json:"targetColumn"`
	TargetClasses []string  `json:"targetClasses,omitempty"`
	TrainRows     int       `json:"trainRows,omitempty"`
	TestRows      int       `json:"testRows,omitempty"`
}

type Job struct {
	ID           string
	Status       Status
	DatasetID    string
	DatasetName  string
	TargetColumn string
	ProblemType  ProblemType
	Config       TrainingConfig
	ExecutionID  string
	Metrics      map[string]float64
	Artifacts    Artifacts
	Features     *FeatureSchema
	ErrorMessage string
	Tags         []string
	Notes        string
	Deployed     bool
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
	UpdatedAt    time.Time
	DeployedAt   *time.Time
}

// PrimaryMetric accuracy for classification, r2 for regression
func (j *Job) PrimaryMetric() (string, float64, bool) {
	name := "r2"
	if j.ProblemType == ProblemClassification {
		name = "accuracy"
	}
	v, ok := j.Metrics[name]
	return name, v, ok
}

func (j *Job) HasTag(tag string) bool {
	for _, t := range j.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

type CreateSpec struct {
	DatasetID    string
	TargetColumn string
	Config       *TrainingConfig
}

// Result fields written on the transition to completed
type Result struct {
	Metrics   map[string]float64
	Artifacts Artifacts
	Features  *FeatureSchema
}

// TransitionInput result for completed, error message for failed
type TransitionInput struct {
	Result       *Result
	ErrorMessage string
}

// MetadataUpdate nil fields are left untouched
type MetadataUpdate struct {
	Tags  *[]string
	Notes *string
}

// DeleteResult artifact categories removed and failed on purge
type DeleteResult struct {
	Removed []string
	Failed  []string
}

type ListOptions struct {
	Limit     int
	NextToken string
	Tag       string
}

type ListResult struct {
	Jobs      []*Job
	NextToken string
}

type Dataset struct {
	ID          string
	Filename    string
	ObjectKey   string
	Size        int64
	Rows        int64
	Columns     []string
	ColumnTypes map[string]string
	CreatedAt   time.Time
}

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}
