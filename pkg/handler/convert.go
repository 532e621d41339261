package handler

import (
	"context"
	"sort"

	"github.com/devsapp/serverless-automl-api/pkg/inference"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/sirupsen/logrus"
)

func convertFeatures(features []job.Feature) []models.Feature {
	out := make([]models.Feature, 0, len(features))
	for _, f := range features {
		out = append(out, models.Feature{Name: f.Name, Type: f.Type, Categories: f.Categories})
	}
	return out
}

// jobResponse snapshot of j, completed jobs get fresh presigned artifact links
func (p *ProxyHandler) jobResponse(ctx context.Context, j *job.Job) *models.JobResponse {
	resp := &models.JobResponse{
		JobID:        j.ID,
		Status:       string(j.Status),
		DatasetID:    j.DatasetID,
		DatasetName:  j.DatasetName,
		TargetColumn: j.TargetColumn,
		ProblemType:  string(j.ProblemType),
		Config: &models.TrainingConfig{
			TimeBudget: j.Config.TimeBudget,
			Metric:     j.Config.Metric,
		},
		ExecutionID:  j.ExecutionID,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.FinishedAt,
		UpdatedAt:    j.UpdatedAt,
		DeployedAt:   j.DeployedAt,
		Deployed:     j.Deployed,
		Metrics:      j.Metrics,
		Tags:         j.Tags,
		Notes:        j.Notes,
		ErrorMessage: j.ErrorMessage,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if j.Features != nil {
		info := &models.PreprocessingInfo{
			Features:      convertFeatures(j.Features.Features),
			TargetColumn:  j.Features.TargetColumn,
			TargetClasses: j.Features.TargetClasses,
			TrainRows:     j.Features.TrainRows,
			TestRows:      j.Features.TestRows,
		}
		for _, f := range j.Features.Features {
			info.FeatureColumns = append(info.FeatureColumns, f.Name)
		}
		resp.PreprocessingInfo = info
	}
	if j.Status == job.StatusCompleted {
		resp.ModelURL = p.sign(ctx, j.Artifacts.ModelKey)
		resp.AlternateModelURL = p.sign(ctx, j.Artifacts.AlternateModelKey)
		names := make([]string, 0, len(j.Artifacts.ReportKeys))
		for name := range j.Artifacts.ReportKeys {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if url := p.sign(ctx, j.Artifacts.ReportKeys[name]); url != "" {
				if resp.ReportURLs == nil {
					resp.ReportURLs = make(map[string]string, len(names))
				}
				resp.ReportURLs[name] = url
			}
		}
	}
	return resp
}

// sign download link of key, empty when there is no key or signing failed
func (p *ProxyHandler) sign(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := p.objects.SignURL(ctx, key, objectstore.MethodGet, p.conf.GetPresignExpire())
	if err != nil {
		logrus.Warnf("sign %s: %v", key, err)
		return ""
	}
	return url
}

func jobSummary(j *job.Job) *models.JobSummary {
	s := &models.JobSummary{
		JobID:        j.ID,
		Status:       string(j.Status),
		DatasetName:  j.DatasetName,
		TargetColumn: j.TargetColumn,
		ProblemType:  string(j.ProblemType),
		CreatedAt:    j.CreatedAt,
		Deployed:     j.Deployed,
		Tags:         j.Tags,
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if name, v, ok := j.PrimaryMetric(); ok {
		s.PrimaryMetric = name
		s.PrimaryMetricValue = &v
	}
	return s
}

func datasetResponse(d *job.Dataset) *models.DatasetResponse {
	return &models.DatasetResponse{
		DatasetID:   d.ID,
		Filename:    d.Filename,
		Size:        d.Size,
		Rows:        d.Rows,
		Columns:     d.Columns,
		ColumnTypes: d.ColumnTypes,
		CreatedAt:   d.CreatedAt,
	}
}

func predictResponse(id string, r *inference.PredictResult) *models.PredictResponse {
	resp := &models.PredictResponse{
		JobID:        id,
		TargetColumn: r.TargetColumn,
		ProblemType:  string(r.ProblemType),
		CacheHit:     r.CacheHit,
	}
	if r.ProblemType == job.ProblemRegression {
		resp.Prediction = r.Value
		if r.ErrorMargin != nil {
			lower, upper := r.Lower(), r.Upper()
			resp.ErrorMargin = r.ErrorMargin
			resp.Lower = &lower
			resp.Upper = &upper
		}
		return resp
	}
	confidence := r.Confidence
	resp.Prediction = r.Label
	resp.Confidence = &confidence
	resp.Probabilities = r.Probabilities
	return resp
}

func predictInfoResponse(info *inference.PredictInfo) *models.PredictInfoResponse {
	return &models.PredictInfoResponse{
		JobID:          info.JobID,
		Features:       convertFeatures(info.Features),
		TargetColumn:   info.TargetColumn,
		ProblemType:    string(info.ProblemType),
		TargetClasses:  info.TargetClasses,
		Deployed:       info.Deployed,
		ExampleRequest: info.ExampleRequest,
	}
}
