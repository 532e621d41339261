package worker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/log"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/devsapp/serverless-automl-api/pkg/search"
	"github.com/sirupsen/logrus"
)

const (
	ReportEDA      = "eda"
	ReportTraining = "training"

	// time left to upload artifacts once the search budget is spent
	uploadGrace = 30 * time.Second
)

type SearcherFactory func(job.ProblemType) (search.Searcher, error)

// Runner the unit of work executed for one job by every executor
type Runner struct {
	store       *job.Store
	objects     objectstore.ObjectStore
	newSearcher SearcherFactory
}

func NewRunner(store *job.Store, factory SearcherFactory) *Runner {
	if factory == nil {
		factory = search.NewSearcher
	}
	return &Runner{
		store:       store,
		objects:     store.Objects(),
		newSearcher: factory,
	}
}

func ModelKey(jobID string) string {
	return path.Join(config.MODEL_PREFIX, jobID, "model.json")
}

func AlternateModelKey(jobID string) string {
	return path.Join(config.MODEL_PREFIX, jobID, "model.gob")
}

func ReportKey(jobID, name string) string {
	return path.Join(config.REPORT_PREFIX, jobID, name+".csv")
}

// Run train the job once. Every step, loading the job included, runs under a
// guard: an error or a panic becomes a failed transition with its message,
// so the job never stays pending or running because of the worker itself.
func (r *Runner) Run(ctx context.Context, jobID string) (err error) {
	entry := log.WithJob(jobID)
	defer func() {
		if p := recover(); p != nil {
			entry.Errorf("worker panic: %v\n%s", p, debug.Stack())
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			r.fail(jobID, err)
			err = errdefs.Execution(err, "job %s failed", jobID)
		}
	}()

	current, err := r.store.Get(ctx, jobID, job.Strong)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if current.Status.Terminal() {
		entry.Infof("job already %s, skip", current.Status)
		return nil
	}
	if current.Status == job.StatusPending {
		if _, err := r.store.Transition(ctx, jobID, job.StatusRunning, job.TransitionInput{}); err != nil {
			return err
		}
	}
	dataset, err := r.store.GetDataset(ctx, current.DatasetID)
	if err != nil {
		return fmt.Errorf("resolve dataset: %w", err)
	}
	searcher, err := r.newSearcher(current.ProblemType)
	if err != nil {
		return err
	}
	body, err := r.objects.Get(ctx, dataset.ObjectKey)
	if err != nil {
		return fmt.Errorf("download dataset %s: %w", dataset.ObjectKey, err)
	}
	entry.Infof("dataset %s downloaded, %d bytes", dataset.ObjectKey, len(body))

	budget := time.Duration(current.Config.TimeBudget) * time.Second
	searchCtx := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	out, err := searcher.Search(searchCtx, &search.Input{
		Dataset:      body,
		ColumnTypes:  dataset.ColumnTypes,
		TargetColumn: current.TargetColumn,
		ProblemType:  current.ProblemType,
		Config:       current.Config,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("model search exceeded time budget %s", budget)
		}
		return fmt.Errorf("model search: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, uploadGrace)
	defer cancel()
	artifacts, err := r.upload(uploadCtx, jobID, body, dataset, out)
	if err != nil {
		return err
	}
	_, err = r.store.Transition(ctx, jobID, job.StatusCompleted, job.TransitionInput{
		Result: &job.Result{
			Metrics:   out.Metrics,
			Artifacts: artifacts,
			Features:  out.Features,
		},
	})
	return err
}

func (r *Runner) upload(ctx context.Context, jobID string, dataset []byte, d *job.Dataset,
	out *search.Output) (job.Artifacts, error) {
	artifacts := job.Artifacts{
		ModelKey:          ModelKey(jobID),
		AlternateModelKey: AlternateModelKey(jobID),
		ReportKeys: map[string]string{
			ReportTraining: ReportKey(jobID, ReportTraining),
		},
	}
	model, err := search.EncodeArtifact(out.Artifact)
	if err != nil {
		return artifacts, err
	}
	if err := r.objects.Put(ctx, artifacts.ModelKey, model); err != nil {
		return artifacts, fmt.Errorf("upload model: %w", err)
	}
	alt, err := search.EncodeGob(out.Artifact)
	if err != nil {
		return artifacts, err
	}
	if err := r.objects.Put(ctx, artifacts.AlternateModelKey, alt); err != nil {
		return artifacts, fmt.Errorf("upload alternate model: %w", err)
	}
	report, err := search.EncodeReport(out.Report)
	if err != nil {
		return artifacts, err
	}
	if err := r.objects.Put(ctx, artifacts.ReportKeys[ReportTraining], report); err != nil {
		return artifacts, fmt.Errorf("upload training report: %w", err)
	}

	// the eda report is optional, the job completes without it
	profile, err := search.Profile(dataset, d.ColumnTypes)
	if err == nil {
		var body []byte
		if body, err = search.EncodeProfile(profile); err == nil {
			key := ReportKey(jobID, ReportEDA)
			if err = r.objects.Put(ctx, key, body); err == nil {
				artifacts.ReportKeys[ReportEDA] = key
			}
		}
	}
	if err != nil {
		log.WithJob(jobID).Warnf("eda report skipped: %v", err)
	}
	return artifacts, nil
}

// fail record the failure, the caller context may already be done
func (r *Runner) fail(jobID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.HTTPTIMEOUT)
	defer cancel()
	if _, err := r.store.Transition(ctx, jobID, job.StatusFailed, job.TransitionInput{
		ErrorMessage: cause.Error(),
	}); err != nil {
		logrus.Errorf("job %s: record failure %q: %v", jobID, cause, err)
	}
}
