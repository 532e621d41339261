package training

import (
	"context"
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/executor"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/log"
	"github.com/devsapp/serverless-automl-api/pkg/metrics"
)

// Coordinator accept training requests and hand them to the executor
type Coordinator struct {
	store    *job.Store
	executor executor.Executor
}

func NewCoordinator(store *job.Store, exec executor.Executor) *Coordinator {
	return &Coordinator{store: store, executor: exec}
}

// Submit create the pending job and hand it off. When the handoff fails the
// job is failed right away and returned with a SubmissionFailure, no retry.
func (c *Coordinator) Submit(ctx context.Context, spec job.CreateSpec) (*job.Job, error) {
	j, err := c.store.Create(ctx, spec)
	if err != nil {
		return nil, err
	}
	entry := log.WithJob(j.ID)
	executionId, submitErr := c.executor.Submit(ctx, j)
	if submitErr != nil {
		metrics.SubmissionFailureCount.Inc()
		entry.Errorf("submit job: %v", submitErr)
		// the request may be gone, the failure must still be recorded
		recordCtx, cancel := context.WithTimeout(context.Background(), config.HTTPTIMEOUT)
		defer cancel()
		failed, err := c.store.Transition(recordCtx, j.ID, job.StatusFailed, job.TransitionInput{
			ErrorMessage: fmt.Sprintf("submission failed: %v", submitErr),
		})
		if err != nil {
			entry.Errorf("record submission failure: %v", err)
			failed = j
		}
		return failed, errdefs.Submission(submitErr, "submission failed")
	}
	if err := c.store.SetExecution(ctx, j.ID, executionId); err != nil {
		// the job is already on its way, a missing handle is not fatal
		entry.Warnf("record execution id %s: %v", executionId, err)
	} else {
		j.ExecutionID = executionId
	}
	entry.Infof("job submitted, execution=%s", executionId)
	return j, nil
}

// EstimatedTime seconds the caller should expect before a result
func EstimatedTime(j *job.Job) int {
	return j.Config.TimeBudget
}
