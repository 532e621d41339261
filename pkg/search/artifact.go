package search

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/job"
)

const ArtifactFormat = "automl-model/v1"

// Artifact the serialized trained model, self describing enough to predict
// without the job record
type Artifact struct {
	Format       string              `json:"format"`
	ProblemType  job.ProblemType     `json:"problemType"`
	TargetColumn string              `json:"targetColumn"`
	Features     []job.Feature       `json:"features"`
	Metrics      map[string]float64  `json:"metrics"`
	Regression   *LinearRegression   `json:"regression,omitempty"`
	Classifier   *CentroidClassifier `json:"classifier,omitempty"`
}

type Prediction struct {
	Value         float64
	Label         string
	Confidence    float64
	Probabilities map[string]float64
}

// Predict encoded feature vector in schema order
func (a *Artifact) Predict(row []float64) (*Prediction, error) {
	switch a.ProblemType {
	case job.ProblemRegression:
		if a.Regression == nil {
			return nil, fmt.Errorf("artifact has no regression model")
		}
		v, err := a.Regression.PredictOne(row)
		if err != nil {
			return nil, err
		}
		return &Prediction{Value: v}, nil
	case job.ProblemClassification:
		if a.Classifier == nil {
			return nil, fmt.Errorf("artifact has no classifier")
		}
		best, probs, err := a.Classifier.Classify(row)
		if err != nil {
			return nil, err
		}
		p := &Prediction{
			Label:         a.Classifier.Classes[best],
			Confidence:    probs[best],
			Probabilities: make(map[string]float64, len(probs)),
		}
		for k, prob := range probs {
			p.Probabilities[a.Classifier.Classes[k]] = prob
		}
		return p, nil
	}
	return nil, fmt.Errorf("unsupported problem type %s", a.ProblemType)
}

// Cost approximate number of float parameters held
func (a *Artifact) Cost() int {
	n := len(a.Features)
	if a.Regression != nil {
		n += 3 * len(a.Regression.Coefficients)
	}
	if a.Classifier != nil {
		for _, c := range a.Classifier.Centroids {
			n += len(c)
		}
		n += 2 * len(a.Classifier.Means)
	}
	return n
}

func (a *Artifact) validate() error {
	if a.Format != ArtifactFormat {
		return fmt.Errorf("unknown model format %q", a.Format)
	}
	if a.Regression == nil && a.Classifier == nil {
		return fmt.Errorf("model artifact carries no model")
	}
	return nil
}

func EncodeArtifact(a *Artifact) ([]byte, error) {
	return json.Marshal(a)
}

func DecodeArtifact(body []byte) (*Artifact, error) {
	a := new(Artifact)
	if err := json.Unmarshal(body, a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// EncodeGob alternate portable encoding of the same model
func EncodeGob(a *Artifact) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeGob(body []byte) (*Artifact, error) {
	a := new(Artifact)
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(a); err != nil {
		return nil, fmt.Errorf("decode gob artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}
