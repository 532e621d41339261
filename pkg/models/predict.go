package models

type PredictRequest struct {
	Features map[string]interface{} `json:"features"`
}

// PredictResponse Prediction is the label for classification, the value for regression
type PredictResponse struct {
	JobID           string             `json:"jobId"`
	Prediction      interface{}        `json:"prediction"`
	Confidence      *float64           `json:"confidence,omitempty"`
	Probabilities   map[string]float64 `json:"probabilities,omitempty"`
	ErrorMargin     *float64           `json:"errorMargin,omitempty"`
	Lower           *float64           `json:"lower,omitempty"`
	Upper           *float64           `json:"upper,omitempty"`
	TargetColumn    string             `json:"targetColumn"`
	ProblemType     string             `json:"problemType"`
	CacheHit        bool               `json:"cacheHit"`
	InferenceTimeMs float64            `json:"inferenceTimeMs"`
}

type PredictInfoResponse struct {
	JobID          string                 `json:"jobId"`
	Features       []Feature              `json:"features"`
	TargetColumn   string                 `json:"targetColumn"`
	ProblemType    string                 `json:"problemType"`
	TargetClasses  []string               `json:"targetClasses,omitempty"`
	Deployed       bool                   `json:"deployed"`
	ExampleRequest map[string]interface{} `json:"exampleRequest"`
}
