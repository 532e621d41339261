// Package search holds the model search boundary. The baseline searcher
// only exists so a job can run end to end without an external search service.
package search

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/sirupsen/logrus"
)

type Input struct {
	Dataset      []byte // csv with header
	ColumnTypes  map[string]string
	TargetColumn string
	ProblemType  job.ProblemType
	Config       job.TrainingConfig
}

type Output struct {
	Artifact *Artifact
	Metrics  map[string]float64
	Features *job.FeatureSchema
	Report   []ReportRow
}

// Searcher opaque model search, returns the best model found and its metrics
type Searcher interface {
	Search(ctx context.Context, in *Input) (*Output, error)
}

// NewSearcher searcher for the problem type, error when none is available
func NewSearcher(problemType job.ProblemType) (Searcher, error) {
	switch problemType {
	case job.ProblemRegression, job.ProblemClassification:
		return &Baseline{Epochs: defaultEpochs, LearningRate: defaultRate}, nil
	}
	return nil, fmt.Errorf("no model searcher for problem type %q", problemType)
}

// Baseline linear regression or nearest centroid classification
type Baseline struct {
	Epochs       int
	LearningRate float64
}

func (b *Baseline) Search(ctx context.Context, in *Input) (*Output, error) {
	rows, err := readRows(in.Dataset)
	if err != nil {
		return nil, err
	}
	columns := columnsOf(in.Dataset)
	types := in.ColumnTypes
	if len(types) == 0 {
		types = InferColumnTypes(columns, rows)
	}
	found := false
	for _, c := range columns {
		found = found || c == in.TargetColumn
	}
	if !found {
		return nil, fmt.Errorf("target column %s not in dataset", in.TargetColumn)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// rows without a target value are dropped
	kept := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row[in.TargetColumn]) != "" {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("target column %s has no values", in.TargetColumn)
	}
	t := buildTable(columns, types, in.TargetColumn, kept)
	logrus.Debugf("search %s on %d rows, %d features", in.ProblemType, len(kept), len(t.features))

	var out *Output
	if in.ProblemType == job.ProblemRegression {
		out, err = b.regression(ctx, t, in.TargetColumn)
	} else {
		out, err = b.classification(t, in.TargetColumn)
	}
	if err != nil {
		return nil, err
	}
	out.Artifact.Format = ArtifactFormat
	out.Artifact.ProblemType = in.ProblemType
	out.Artifact.TargetColumn = in.TargetColumn
	out.Artifact.Features = t.features
	out.Artifact.Metrics = out.Metrics
	out.Features.Features = t.features
	out.Features.TargetColumn = in.TargetColumn
	out.Report = buildReport(in, out)
	return out, nil
}

func (b *Baseline) regression(ctx context.Context, t *table, target string) (*Output, error) {
	y := make([]float64, len(t.raw))
	for i, row := range t.raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[target]), 64)
		if err != nil {
			return nil, fmt.Errorf("target column %s is not numeric: %q", target, row[target])
		}
		y[i] = v
	}
	train, test := split(len(y))
	names := make([]string, len(t.features))
	for j, f := range t.features {
		names[j] = f.Name
	}
	inst, err := newInstances(names, pick(t.x, train), pickValues(y, train))
	if err != nil {
		return nil, err
	}
	model := NewLinearRegression()
	if err := model.Fit(inst, b.Epochs, b.LearningRate); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var mae, mse, mean, tss float64
	for _, i := range test {
		p, err := model.PredictOne(t.x[i])
		if err != nil {
			return nil, err
		}
		mae += math.Abs(y[i] - p)
		mse += (y[i] - p) * (y[i] - p)
		mean += y[i]
	}
	n := float64(len(test))
	mean /= n
	for _, i := range test {
		tss += (y[i] - mean) * (y[i] - mean)
	}
	r2 := 0.0
	if tss > 0 {
		r2 = 1 - mse/tss
	}
	metrics := map[string]float64{
		"mae":  mae / n,
		"mse":  mse / n,
		"rmse": math.Sqrt(mse / n),
		"r2":   r2,
	}
	return &Output{
		Artifact: &Artifact{Regression: model},
		Metrics:  metrics,
		Features: &job.FeatureSchema{TrainRows: len(train), TestRows: len(test)},
	}, nil
}

func pickValues(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}

func (b *Baseline) classification(t *table, target string) (*Output, error) {
	classes := distinct(t.raw, target)
	if len(classes) < 2 {
		return nil, fmt.Errorf("target column %s needs at least 2 classes", target)
	}
	index := make(map[string]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	labels := make([]int, len(t.raw))
	for i, row := range t.raw {
		labels[i] = index[strings.TrimSpace(row[target])]
	}
	train, test := split(len(labels))
	trainLabels := make([]int, len(train))
	for k, i := range train {
		trainLabels[k] = labels[i]
	}
	model, err := FitCentroids(pick(t.x, train), trainLabels, classes)
	if err != nil {
		return nil, err
	}

	correct := 0
	logLoss := 0.0
	truePos := make([]int, len(classes))
	predicted := make([]int, len(classes))
	actual := make([]int, len(classes))
	for _, i := range test {
		best, probs, err := model.Classify(t.x[i])
		if err != nil {
			return nil, err
		}
		predicted[best]++
		actual[labels[i]]++
		if best == labels[i] {
			correct++
			truePos[best]++
		}
		logLoss -= math.Log(math.Max(probs[labels[i]], 1e-15))
	}
	n := float64(len(test))
	f1 := 0.0
	for k := range classes {
		if predicted[k] == 0 || actual[k] == 0 {
			continue
		}
		precision := float64(truePos[k]) / float64(predicted[k])
		recall := float64(truePos[k]) / float64(actual[k])
		if precision+recall > 0 {
			f1 += 2 * precision * recall / (precision + recall)
		}
	}
	metrics := map[string]float64{
		"accuracy": float64(correct) / n,
		"f1_macro": f1 / float64(len(classes)),
		"log_loss": logLoss / n,
	}
	return &Output{
		Artifact: &Artifact{Classifier: model},
		Metrics:  metrics,
		Features: &job.FeatureSchema{TargetClasses: classes, TrainRows: len(train), TestRows: len(test)},
	}, nil
}
