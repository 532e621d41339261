package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/utils"
)

var jobColumns = []string{
	datastore.KJobId,
	datastore.KJobStatus,
	datastore.KJobDatasetId,
	datastore.KJobDatasetName,
	datastore.KJobTargetColumn,
	datastore.KJobProblemType,
	datastore.KJobConfig,
	datastore.KJobExecutionId,
	datastore.KJobMetrics,
	datastore.KJobArtifacts,
	datastore.KJobFeatures,
	datastore.KJobError,
	datastore.KJobTags,
	datastore.KJobNotes,
	datastore.KJobDeployed,
	datastore.KJobCreateTime,
	datastore.KJobStartTime,
	datastore.KJobFinishTime,
	datastore.KJobModifyTime,
	datastore.KJobDeployTime,
}

var datasetColumns = []string{
	datastore.KDatasetId,
	datastore.KDatasetFilename,
	datastore.KDatasetObjectKey,
	datastore.KDatasetSize,
	datastore.KDatasetRows,
	datastore.KDatasetColumns,
	datastore.KDatasetColumnTypes,
	datastore.KDatasetCreateTime,
}

func toJSON(v interface{}) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func fromJSON(row map[string]interface{}, column string, v interface{}) error {
	s := getString(row, column)
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode column %s: %w", column, err)
	}
	return nil
}

func getString(row map[string]interface{}, column string) string {
	if v, ok := row[column].(string); ok {
		return v
	}
	return ""
}

func getInt(row map[string]interface{}, column string) int64 {
	switch v := row[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func msOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// jobToRow full row of a new job record
func jobToRow(j *Job) (map[string]interface{}, error) {
	cfg, err := toJSON(j.Config)
	if err != nil {
		return nil, err
	}
	tags, err := toJSON(j.Tags)
	if err != nil {
		return nil, err
	}
	row := map[string]interface{}{
		datastore.KJobStatus:       string(j.Status),
		datastore.KJobDatasetId:    j.DatasetID,
		datastore.KJobDatasetName:  j.DatasetName,
		datastore.KJobTargetColumn: j.TargetColumn,
		datastore.KJobProblemType:  string(j.ProblemType),
		datastore.KJobConfig:       cfg,
		datastore.KJobTags:         tags,
		datastore.KJobNotes:        j.Notes,
		datastore.KJobDeployed:     boolToInt(j.Deployed),
		datastore.KJobCreateTime:   j.CreatedAt.UnixMilli(),
		datastore.KJobModifyTime:   j.UpdatedAt.UnixMilli(),
	}
	if j.ExecutionID != "" {
		row[datastore.KJobExecutionId] = j.ExecutionID
	}
	return row, nil
}

// resultColumns system columns written on completed
func resultColumns(result *Result) (map[string]interface{}, error) {
	metrics, err := toJSON(result.Metrics)
	if err != nil {
		return nil, err
	}
	artifacts, err := toJSON(result.Artifacts)
	if err != nil {
		return nil, err
	}
	row := map[string]interface{}{
		datastore.KJobMetrics:   metrics,
		datastore.KJobArtifacts: artifacts,
	}
	if result.Features != nil {
		features, err := toJSON(result.Features)
		if err != nil {
			return nil, err
		}
		row[datastore.KJobFeatures] = features
	}
	return row, nil
}

func jobFromRow(id string, row map[string]interface{}) (*Job, error) {
	j := &Job{
		ID:           id,
		Status:       Status(getString(row, datastore.KJobStatus)),
		DatasetID:    getString(row, datastore.KJobDatasetId),
		DatasetName:  getString(row, datastore.KJobDatasetName),
		TargetColumn: getString(row, datastore.KJobTargetColumn),
		ProblemType:  ProblemType(getString(row, datastore.KJobProblemType)),
		ExecutionID:  getString(row, datastore.KJobExecutionId),
		ErrorMessage: getString(row, datastore.KJobError),
		Notes:        getString(row, datastore.KJobNotes),
		Deployed:     getInt(row, datastore.KJobDeployed) == 1,
		StartedAt:    utils.MSToTime(getInt(row, datastore.KJobStartTime)),
		FinishedAt:   utils.MSToTime(getInt(row, datastore.KJobFinishTime)),
		DeployedAt:   utils.MSToTime(getInt(row, datastore.KJobDeployTime)),
	}
	if t := utils.MSToTime(getInt(row, datastore.KJobCreateTime)); t != nil {
		j.CreatedAt = *t
	}
	if t := utils.MSToTime(getInt(row, datastore.KJobModifyTime)); t != nil {
		j.UpdatedAt = *t
	}
	if err := fromJSON(row, datastore.KJobConfig, &j.Config); err != nil {
		return nil, err
	}
	if err := fromJSON(row, datastore.KJobMetrics, &j.Metrics); err != nil {
		return nil, err
	}
	if err := fromJSON(row, datastore.KJobArtifacts, &j.Artifacts); err != nil {
		return nil, err
	}
	if err := fromJSON(row, datastore.KJobTags, &j.Tags); err != nil {
		return nil, err
	}
	if getString(row, datastore.KJobFeatures) != "" {
		j.Features = new(FeatureSchema)
		if err := fromJSON(row, datastore.KJobFeatures, j.Features); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func datasetToRow(d *Dataset) (map[string]interface{}, error) {
	columns, err := toJSON(d.Columns)
	if err != nil {
		return nil, err
	}
	types, err := toJSON(d.ColumnTypes)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		datastore.KDatasetFilename:    d.Filename,
		datastore.KDatasetObjectKey:   d.ObjectKey,
		datastore.KDatasetSize:        d.Size,
		datastore.KDatasetRows:        d.Rows,
		datastore.KDatasetColumns:     columns,
		datastore.KDatasetColumnTypes: types,
		datastore.KDatasetCreateTime:  d.CreatedAt.UnixMilli(),
	}, nil
}

func datasetFromRow(id string, row map[string]interface{}) (*Dataset, error) {
	d := &Dataset{
		ID:        id,
		Filename:  getString(row, datastore.KDatasetFilename),
		ObjectKey: getString(row, datastore.KDatasetObjectKey),
		Size:      getInt(row, datastore.KDatasetSize),
		Rows:      getInt(row, datastore.KDatasetRows),
	}
	if t := utils.MSToTime(getInt(row, datastore.KDatasetCreateTime)); t != nil {
		d.CreatedAt = *t
	}
	if err := fromJSON(row, datastore.KDatasetColumns, &d.Columns); err != nil {
		return nil, err
	}
	if err := fromJSON(row, datastore.KDatasetColumnTypes, &d.ColumnTypes); err != nil {
		return nil, err
	}
	return d, nil
}
