package executor

import (
	"context"
	"sync"

	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/worker"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LocalExecutor run the unit of work in a goroutine of this process
type LocalExecutor struct {
	runner *worker.Runner
	wg     sync.WaitGroup
}

func NewLocalExecutor(runner *worker.Runner) *LocalExecutor {
	return &LocalExecutor{runner: runner}
}

func (l *LocalExecutor) Submit(ctx context.Context, j *job.Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	executionId := "local-" + uuid.New().String()
	l.wg.Add(1)
	go func(jobId string) {
		defer l.wg.Done()
		// detached from the request, the run outlives it
		if err := l.runner.Run(context.Background(), jobId); err != nil {
			logrus.WithFields(logrus.Fields{"jobId": jobId}).Errorf("local run: %v", err)
		}
	}(j.ID)
	return executionId, nil
}

// Wait block until every submitted run returned
func (l *LocalExecutor) Wait() {
	l.wg.Wait()
}
