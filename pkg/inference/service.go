// Package inference serves predictions of deployed jobs from a process local
// model cache that is loaded lazily from the object store.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/log"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/devsapp/serverless-automl-api/pkg/search"
	"github.com/hashicorp/go-multierror"
)

type Service struct {
	store   *job.Store
	objects objectstore.ObjectStore
	cache   *ModelCache
	conf    *config.Config
}

func NewService(store *job.Store, cache *ModelCache, conf *config.Config) *Service {
	return &Service{
		store:   store,
		objects: store.Objects(),
		cache:   cache,
		conf:    conf,
	}
}

type PredictResult struct {
	TargetColumn string
	ProblemType  job.ProblemType
	CacheHit     bool
	// regression
	Value       float64
	ErrorMargin *float64
	// classification
	Label         string
	Confidence    float64
	Probabilities map[string]float64
}

// Lower and Upper bound of the regression value, the value itself without a margin
func (r *PredictResult) Lower() float64 {
	if r.ErrorMargin == nil {
		return r.Value
	}
	return r.Value - *r.ErrorMargin
}

func (r *PredictResult) Upper() float64 {
	if r.ErrorMargin == nil {
		return r.Value
	}
	return r.Value + *r.ErrorMargin
}

type PredictInfo struct {
	JobID          string
	TargetColumn   string
	ProblemType    job.ProblemType
	Features       []job.Feature
	TargetClasses  []string
	Deployed       bool
	ExampleRequest map[string]interface{}
}

// Deploy mark a completed job deployed. The warm up is best effort, its
// failure is logged and never fails the deploy.
func (s *Service) Deploy(ctx context.Context, id string) (*job.Job, error) {
	current, err := s.store.Get(ctx, id, job.Strong)
	if err != nil {
		return nil, err
	}
	if current.Status != job.StatusCompleted {
		return nil, errdefs.Statef("cannot deploy job with status '%s', only completed jobs can be deployed", current.Status)
	}
	if current.Artifacts.ModelKey == "" {
		return nil, errdefs.Statef("job %s has no model artifact", id)
	}
	deployed, err := s.store.SetDeployed(ctx, id, true)
	if err != nil {
		return nil, err
	}
	log.WithJob(id).Info("model deployed")
	if s.conf.WarmOnDeploy {
		s.warm(ctx, deployed)
	}
	return deployed, nil
}

func (s *Service) warm(ctx context.Context, j *job.Job) {
	warmCtx, cancel := context.WithTimeout(ctx, s.conf.GetWarmTimeout())
	defer cancel()
	if _, _, err := s.cache.GetOrLoad(warmCtx, j.ID, s.loader(j)); err != nil {
		log.WithJob(j.ID).Warnf("warm up model cache: %v", err)
	}
}

func (s *Service) Undeploy(ctx context.Context, id string) (*job.Job, error) {
	undeployed, err := s.store.SetDeployed(ctx, id, false)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(id)
	log.WithJob(id).Info("model undeployed")
	return undeployed, nil
}

// Predict the deployed flag is read strongly on every call, the cache only
// ever saves the artifact download
func (s *Service) Predict(ctx context.Context, id string, features map[string]interface{}) (*PredictResult, error) {
	current, err := s.store.Get(ctx, id, job.Strong)
	if err != nil {
		return nil, err
	}
	if !current.Deployed {
		return nil, errdefs.NotDeployedf("model is not deployed, deploy job %s first", id)
	}
	row, err := EncodeFeatures(current.Features, features)
	if err != nil {
		return nil, err
	}
	entry, hit, err := s.cache.GetOrLoad(ctx, id, s.loader(current))
	if err != nil {
		return nil, err
	}
	p, err := entry.Model.Predict(row)
	if err != nil {
		return nil, fmt.Errorf("predict job %s: %w", id, err)
	}
	result := &PredictResult{
		TargetColumn: current.TargetColumn,
		ProblemType:  current.ProblemType,
		CacheHit:     hit,
	}
	if current.ProblemType == job.ProblemRegression {
		result.Value = p.Value
		if rmse, ok := current.Metrics["rmse"]; ok {
			result.ErrorMargin = &rmse
		}
		return result, nil
	}
	result.Label = p.Label
	result.Confidence = p.Confidence
	result.Probabilities = p.Probabilities
	return result, nil
}

// PredictInfo the expected request of a completed job, deployed or not.
// The model is never loaded.
func (s *Service) PredictInfo(ctx context.Context, id string) (*PredictInfo, error) {
	current, err := s.store.Get(ctx, id, job.Strong)
	if err != nil {
		return nil, err
	}
	if current.Status != job.StatusCompleted {
		return nil, errdefs.Statef("job %s is %s, predict info needs a completed job", id, current.Status)
	}
	if current.Features == nil {
		return nil, errdefs.Statef("job has no feature schema")
	}
	return &PredictInfo{
		JobID:          current.ID,
		TargetColumn:   current.TargetColumn,
		ProblemType:    current.ProblemType,
		Features:       current.Features.Features,
		TargetClasses:  current.Features.TargetClasses,
		Deployed:       current.Deployed,
		ExampleRequest: exampleRequest(current.Features),
	}, nil
}

// loader model JSON first, the gob alternate when the JSON one is unusable
func (s *Service) loader(j *job.Job) Loader {
	return func(ctx context.Context) (*search.Artifact, error) {
		start := time.Now()
		body, err := s.objects.Get(ctx, j.Artifacts.ModelKey)
		if err == nil {
			var model *search.Artifact
			if model, err = search.DecodeArtifact(body); err == nil {
				log.WithJob(j.ID).Infof("model loaded in %s", time.Since(start))
				return model, nil
			}
		}
		if j.Artifacts.AlternateModelKey == "" {
			return nil, err
		}
		log.WithJob(j.ID).Warnf("model %s unusable, try alternate: %v", j.Artifacts.ModelKey, err)
		body, altErr := s.objects.Get(ctx, j.Artifacts.AlternateModelKey)
		if altErr != nil {
			return nil, multierror.Append(err, altErr)
		}
		return search.DecodeGob(body)
	}
}

// Forget drop the cached model of a deleted job
func (s *Service) Forget(id string) {
	s.cache.Invalidate(id)
}
