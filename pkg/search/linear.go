package search

import (
	"errors"
	"math"

	"github.com/sjwhitworth/golearn/base"
)

const (
	classAttrName = "label"
	defaultEpochs = 2000
	defaultRate   = 0.05
)

// LinearRegression linear model over standardized features, fitted by
// full batch gradient descent on golearn instances.
type LinearRegression struct {
	Fitted       bool      `json:"fitted"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{Fitted: false}
}

// newInstances dense float grid with one attribute per feature plus the class attribute
func newInstances(names []string, rows [][]float64, target []float64) (*base.DenseInstances, error) {
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(names))
	for i, name := range names {
		specs[i] = inst.AddAttribute(base.NewFloatAttribute(name))
	}
	label := base.NewFloatAttribute(classAttrName)
	labelSpec := inst.AddAttribute(label)
	if err := inst.AddClassAttribute(label); err != nil {
		return nil, err
	}
	if err := inst.Extend(len(rows)); err != nil {
		return nil, err
	}
	for i, row := range rows {
		for j, v := range row {
			inst.Set(specs[j], i, base.PackFloatToBytes(v))
		}
		y := 0.0
		if target != nil {
			y = target[i]
		}
		inst.Set(labelSpec, i, base.PackFloatToBytes(y))
	}
	return inst, nil
}

func featureSpecs(inst base.FixedDataGrid) ([]base.AttributeSpec, base.AttributeSpec, error) {
	classAttrs := inst.AllClassAttributes()
	if len(classAttrs) != 1 {
		return nil, base.AttributeSpec{}, errors.New("only 1 class variable is permitted")
	}
	classSpecs := base.ResolveAttributes(inst, classAttrs)
	// AllAttributes keeps the order attributes were added, the coefficients follow it
	attrs := make([]base.Attribute, 0)
	for _, a := range inst.AllAttributes() {
		if _, ok := a.(*base.FloatAttribute); !ok || a.GetName() == classAttrs[0].GetName() {
			continue
		}
		attrs = append(attrs, a)
	}
	return base.ResolveAttributes(inst, attrs), classSpecs[0], nil
}

// Fit train the coefficients on inst
func (lr *LinearRegression) Fit(inst base.FixedDataGrid, epochs int, learningRate float64) error {
	attrSpecs, classSpec, err := featureSpecs(inst)
	if err != nil {
		return err
	}
	_, rows := inst.Size()
	if rows == 0 {
		return errors.New("no rows to fit")
	}
	cols := len(attrSpecs)
	x := make([][]float64, rows)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x[i] = make([]float64, cols)
		for j, spec := range attrSpecs {
			x[i][j] = base.UnpackBytesToFloat(inst.Get(spec, i))
		}
		y[i] = base.UnpackBytesToFloat(inst.Get(classSpec, i))
	}
	lr.Means, lr.Scales = standardize(x)

	coef := make([]float64, cols)
	intercept := 0.0
	grad := make([]float64, cols)
	for epoch := 0; epoch < epochs; epoch++ {
		gradIntercept := 0.0
		for j := range grad {
			grad[j] = 0
		}
		for i := 0; i < rows; i++ {
			diff := intercept - y[i]
			for j := 0; j < cols; j++ {
				diff += coef[j] * x[i][j]
			}
			gradIntercept += diff
			for j := 0; j < cols; j++ {
				grad[j] += diff * x[i][j]
			}
		}
		intercept -= learningRate * gradIntercept / float64(rows)
		for j := 0; j < cols; j++ {
			coef[j] -= learningRate * grad[j] / float64(rows)
		}
	}
	if math.IsNaN(intercept) {
		return errors.New("model NAN")
	}
	lr.Intercept = intercept
	lr.Coefficients = coef
	lr.Fitted = true
	return nil
}

// PredictOne raw feature vector to the predicted value
func (lr *LinearRegression) PredictOne(row []float64) (float64, error) {
	if !lr.Fitted {
		return 0, errors.New("no fitted model")
	}
	if len(row) != len(lr.Coefficients) {
		return 0, errors.New("feature count mismatch")
	}
	prediction := lr.Intercept
	for j, v := range row {
		prediction += lr.scale(j, v) * lr.Coefficients[j]
	}
	return prediction, nil
}

func (lr *LinearRegression) scale(j int, v float64) float64 {
	if j >= len(lr.Means) {
		return v
	}
	return (v - lr.Means[j]) / lr.Scales[j]
}

// Predict prediction vector for every row of X
func (lr *LinearRegression) Predict(X base.FixedDataGrid) (base.FixedDataGrid, error) {
	if !lr.Fitted {
		return nil, errors.New("no fitted model")
	}
	attrSpecs, _, err := featureSpecs(X)
	if err != nil {
		return nil, err
	}
	ret := base.GeneratePredictionVector(X)
	clsSpec, err := ret.GetAttribute(ret.AllClassAttributes()[0])
	if err != nil {
		return nil, err
	}
	err = X.MapOverRows(attrSpecs, func(row [][]byte, i int) (bool, error) {
		values := make([]float64, len(row))
		for j, r := range row {
			values[j] = base.UnpackBytesToFloat(r)
		}
		prediction, err := lr.PredictOne(values)
		if err != nil {
			return false, err
		}
		ret.Set(clsSpec, i, base.PackFloatToBytes(prediction))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// standardize scale x in place to zero mean and unit variance
func standardize(x [][]float64) ([]float64, []float64) {
	if len(x) == 0 {
		return nil, nil
	}
	cols := len(x[0])
	means := make([]float64, cols)
	scales := make([]float64, cols)
	for _, row := range x {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(x))
	}
	for _, row := range x {
		for j, v := range row {
			scales[j] += (v - means[j]) * (v - means[j])
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / float64(len(x)))
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	for _, row := range x {
		for j := range row {
			row[j] = (row[j] - means[j]) / scales[j]
		}
	}
	return means, scales
}
