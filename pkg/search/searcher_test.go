package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/sjwhitworth/golearn/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func housingCSV() []byte {
	var b strings.Builder
	b.WriteString("area,city,price\n")
	for i := 1; i <= 40; i++ {
		city, bonus := "north", 0.0
		if i%2 == 0 {
			city, bonus = "south", 5
		}
		fmt.Fprintf(&b, "%d,%s,%g\n", i, city, 3*float64(i)+10+bonus)
	}
	return []byte(b.String())
}

func irisCSV() []byte {
	var b strings.Builder
	b.WriteString("width,length,species\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "%g,%g,setosa\n", 1+float64(i%3)*0.1, 1+float64(i%5)*0.1)
		fmt.Fprintf(&b, "%g,%g,virginica\n", 5+float64(i%3)*0.1, 6+float64(i%5)*0.1)
	}
	return []byte(b.String())
}

func TestBaselineRegression(t *testing.T) {
	s, err := NewSearcher(job.ProblemRegression)
	require.NoError(t, err)
	out, err := s.Search(context.Background(), &Input{
		Dataset:      housingCSV(),
		TargetColumn: "price",
		ProblemType:  job.ProblemRegression,
		Config:       job.TrainingConfig{TimeBudget: 60, Metric: job.DefaultMetric},
	})
	require.NoError(t, err)
	assert.Less(t, out.Metrics["rmse"], 0.1)
	assert.Greater(t, out.Metrics["r2"], 0.99)
	require.Len(t, out.Features.Features, 2)
	assert.Equal(t, "area", out.Features.Features[0].Name)
	assert.Equal(t, job.ColumnNumeric, out.Features.Features[0].Type)
	assert.Equal(t, []string{"north", "south"}, out.Features.Features[1].Categories)
	assert.Equal(t, 32, out.Features.TrainRows)
	assert.Equal(t, 8, out.Features.TestRows)

	// area 50 in the south
	p, err := out.Artifact.Predict([]float64{50, 1})
	require.NoError(t, err)
	assert.InDelta(t, 165, p.Value, 0.5)
	assert.NotEmpty(t, out.Report)
}

func TestBaselineClassification(t *testing.T) {
	s, err := NewSearcher(job.ProblemClassification)
	require.NoError(t, err)
	out, err := s.Search(context.Background(), &Input{
		Dataset:      irisCSV(),
		TargetColumn: "species",
		ProblemType:  job.ProblemClassification,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Metrics["accuracy"])
	assert.Equal(t, []string{"setosa", "virginica"}, out.Features.TargetClasses)

	p, err := out.Artifact.Predict([]float64{5.1, 6.2})
	require.NoError(t, err)
	assert.Equal(t, "virginica", p.Label)
	assert.Greater(t, p.Confidence, 0.5)
	assert.InDelta(t, 1.0, p.Probabilities["setosa"]+p.Probabilities["virginica"], 1e-9)
}

func TestSearchErrors(t *testing.T) {
	_, err := NewSearcher(job.ProblemType("clustering"))
	assert.Error(t, err)

	b := &Baseline{Epochs: 10, LearningRate: defaultRate}
	_, err = b.Search(context.Background(), &Input{Dataset: housingCSV(), TargetColumn: "missing",
		ProblemType: job.ProblemRegression})
	assert.Error(t, err)
	_, err = b.Search(context.Background(), &Input{Dataset: []byte("a,b\n"), TargetColumn: "a",
		ProblemType: job.ProblemRegression})
	assert.Error(t, err)
	_, err = b.Search(context.Background(), &Input{Dataset: []byte("a,b\n1,x\n2,x\n"), TargetColumn: "b",
		ProblemType: job.ProblemClassification})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Search(ctx, &Input{Dataset: housingCSV(), TargetColumn: "price", ProblemType: job.ProblemRegression})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInferColumnTypes(t *testing.T) {
	rows := []map[string]string{
		{"a": "1", "b": "x", "c": ""},
		{"a": "2.5", "b": "3", "c": ""},
		{"a": "", "b": "y", "c": ""},
	}
	types := InferColumnTypes([]string{"a", "b", "c"}, rows)
	assert.Equal(t, map[string]string{
		"a": job.ColumnNumeric,
		"b": job.ColumnCategorical,
		"c": job.ColumnCategorical,
	}, types)
}

func TestLinearRegressionGrid(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}, {5}}
	y := []float64{3, 5, 7, 9, 11}
	inst, err := newInstances([]string{"x"}, x, y)
	require.NoError(t, err)
	model := NewLinearRegression()
	require.NoError(t, model.Fit(inst, defaultEpochs, defaultRate))

	out, err := model.Predict(inst)
	require.NoError(t, err)
	spec, err := out.GetAttribute(out.AllClassAttributes()[0])
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i], base.UnpackBytesToFloat(out.Get(spec, i)), 1e-3)
	}

	_, err = NewLinearRegression().PredictOne([]float64{1})
	assert.Error(t, err)
}

func TestLinearRegressionFeatureOrder(t *testing.T) {
	x := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range x {
		a, b := float64(i%7), float64(i*3%11)*10
		x[i] = []float64{a, b}
		y[i] = 3*a + b
	}
	for i := 0; i < 30; i++ {
		inst, err := newInstances([]string{"a", "b"}, x, y)
		require.NoError(t, err)
		model := NewLinearRegression()
		require.NoError(t, model.Fit(inst, defaultEpochs, defaultRate))
		prediction, err := model.PredictOne([]float64{10, 100})
		require.NoError(t, err)
		require.InDelta(t, 130, prediction, 1, "fit %d", i)
	}
}

func TestArtifactEncoding(t *testing.T) {
	out, err := (&Baseline{Epochs: defaultEpochs, LearningRate: defaultRate}).Search(context.Background(),
		&Input{Dataset: housingCSV(), TargetColumn: "price", ProblemType: job.ProblemRegression})
	require.NoError(t, err)
	want, err := out.Artifact.Predict([]float64{10, 0})
	require.NoError(t, err)

	body, err := EncodeArtifact(out.Artifact)
	require.NoError(t, err)
	decoded, err := DecodeArtifact(body)
	require.NoError(t, err)
	got, err := decoded.Predict([]float64{10, 0})
	require.NoError(t, err)
	assert.InDelta(t, want.Value, got.Value, 1e-9)

	alt, err := EncodeGob(out.Artifact)
	require.NoError(t, err)
	decoded, err = DecodeGob(alt)
	require.NoError(t, err)
	got, err = decoded.Predict([]float64{10, 0})
	require.NoError(t, err)
	assert.InDelta(t, want.Value, got.Value, 1e-9)
	assert.Greater(t, decoded.Cost(), 0)

	_, err = DecodeArtifact([]byte(`{"format":"onnx"}`))
	assert.Error(t, err)
	_, err = DecodeArtifact([]byte(`not json`))
	assert.Error(t, err)
}

func TestReportCSV(t *testing.T) {
	rows := []ReportRow{{Section: "metric", Name: "rmse", Value: 0.5}}
	body, err := EncodeReport(rows)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "section,name,value\n"))
	decoded, err := DecodeReport(body)
	require.NoError(t, err)
	assert.Equal(t, rows, decoded)
}

func TestProfile(t *testing.T) {
	profile, err := Profile([]byte("a,b\n1,x\n3,\n,y\n"), nil)
	require.NoError(t, err)
	require.Len(t, profile, 2)
	assert.Equal(t, ProfileRow{Column: "a", Type: job.ColumnNumeric, Missing: 1, Distinct: 2, Mean: 2, Min: 1, Max: 3}, profile[0])
	assert.Equal(t, ProfileRow{Column: "b", Type: job.ColumnCategorical, Missing: 1, Distinct: 2}, profile[1])
	body, err := EncodeProfile(profile)
	require.NoError(t, err)
	assert.Contains(t, string(body), "column,type,missing,distinct,mean,min,max")
}

func TestDescribe(t *testing.T) {
	d, err := Describe([]byte("\ufeffarea, city,price\n1,north,13\n2,south,\n3,north,19\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"area", "city", "price"}, d.Columns)
	assert.Equal(t, int64(3), d.Rows)
	assert.Equal(t, map[string]string{
		"area":  job.ColumnNumeric,
		"city":  job.ColumnCategorical,
		"price": job.ColumnNumeric,
	}, d.ColumnTypes)

	_, err = Describe([]byte(""), 10)
	assert.Error(t, err)
	_, err = Describe([]byte("a,b\n"), 10)
	assert.ErrorContains(t, err, "no rows")
}
