package inference

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
)

// unknownCategory code of a categorical value never seen in training
const unknownCategory = -1

// EncodeFeatures the request values as the model vector, in schema order.
// Every feature is required, extra keys are ignored.
func EncodeFeatures(schema *job.FeatureSchema, values map[string]interface{}) ([]float64, error) {
	if schema == nil || len(schema.Features) == 0 {
		return nil, errdefs.Statef("job has no feature schema")
	}
	var missing []string
	for _, f := range schema.Features {
		if _, ok := values[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return nil, errdefs.Validationf("missing required features: %s", strings.Join(missing, ", "))
	}
	row := make([]float64, len(schema.Features))
	for i, f := range schema.Features {
		v := values[f.Name]
		if f.Type == job.ColumnCategorical {
			row[i] = categoryCode(f.Categories, v)
			continue
		}
		n, ok := toFloat(v)
		if !ok {
			return nil, errdefs.Validationf("cannot convert %v to number for feature %s", v, f.Name)
		}
		row[i] = n
	}
	return row, nil
}

func categoryCode(categories []string, v interface{}) float64 {
	s := strings.TrimSpace(toString(v))
	for k, c := range categories {
		if c == s {
			return float64(k)
		}
	}
	return unknownCategory
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// exampleRequest one valid value per feature
func exampleRequest(schema *job.FeatureSchema) map[string]interface{} {
	example := make(map[string]interface{}, len(schema.Features))
	for _, f := range schema.Features {
		if f.Type == job.ColumnCategorical && len(f.Categories) > 0 {
			example[f.Name] = f.Categories[0]
		} else {
			example[f.Name] = 0
		}
	}
	return example
}
