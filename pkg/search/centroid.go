package search

import (
	"errors"
	"math"
)

// CentroidClassifier nearest class mean over standardized features,
// probabilities are a softmax of the negative squared distances.
type CentroidClassifier struct {
	Classes   []string    `json:"classes"`
	Centroids [][]float64 `json:"centroids"`
	Means     []float64   `json:"means"`
	Scales    []float64   `json:"scales"`
}

// FitCentroids labels index into classes
func FitCentroids(x [][]float64, labels []int, classes []string) (*CentroidClassifier, error) {
	if len(x) == 0 || len(x) != len(labels) {
		return nil, errors.New("no rows to fit")
	}
	scaled := make([][]float64, len(x))
	for i, row := range x {
		scaled[i] = append([]float64(nil), row...)
	}
	means, scales := standardize(scaled)
	cols := len(scaled[0])
	centroids := make([][]float64, len(classes))
	counts := make([]int, len(classes))
	for c := range centroids {
		centroids[c] = make([]float64, cols)
	}
	for i, row := range scaled {
		c := labels[i]
		counts[c]++
		for j, v := range row {
			centroids[c][j] += v
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] /= float64(counts[c])
		}
	}
	return &CentroidClassifier{
		Classes:   classes,
		Centroids: centroids,
		Means:     means,
		Scales:    scales,
	}, nil
}

// Probabilities per class probability of a raw feature vector
func (c *CentroidClassifier) Probabilities(row []float64) ([]float64, error) {
	if len(c.Centroids) == 0 {
		return nil, errors.New("no fitted model")
	}
	if len(row) != len(c.Means) {
		return nil, errors.New("feature count mismatch")
	}
	scores := make([]float64, len(c.Centroids))
	best := math.Inf(-1)
	for k, centroid := range c.Centroids {
		d := 0.0
		for j, v := range row {
			diff := (v-c.Means[j])/c.Scales[j] - centroid[j]
			d += diff * diff
		}
		scores[k] = -d
		if scores[k] > best {
			best = scores[k]
		}
	}
	sum := 0.0
	for k := range scores {
		scores[k] = math.Exp(scores[k] - best)
		sum += scores[k]
	}
	for k := range scores {
		scores[k] /= sum
	}
	return scores, nil
}

// Classify index of the most probable class
func (c *CentroidClassifier) Classify(row []float64) (int, []float64, error) {
	probs, err := c.Probabilities(row)
	if err != nil {
		return 0, nil, err
	}
	best := 0
	for k, p := range probs {
		if p > probs[best] {
			best = k
		}
	}
	return best, probs, nil
}
