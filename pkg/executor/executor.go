// Package executor hands a pending job to the compute that runs the unit of
// work. The handoff only has to be accepted, the job itself runs later.
package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/models"
	"github.com/devsapp/serverless-automl-api/pkg/worker"
)

type Executor interface {
	// Submit returns an execution handle once the backend accepted the job
	Submit(ctx context.Context, j *job.Job) (string, error)
}

// EncodePayload body of the invocation, read back by the agent /invoke handler
func EncodePayload(jobID string) ([]byte, error) {
	return json.Marshal(&models.InvokeRequest{JobID: jobID})
}

// New executor selected by conf.ExecutorType, the runner serves the local one
func New(conf *config.Config, runner *worker.Runner) (Executor, error) {
	switch conf.ExecutorType {
	case config.EXECUTOR_FC:
		return NewFcExecutor(conf)
	case config.EXECUTOR_K8S:
		return NewKubernetesExecutor(conf)
	case config.EXECUTOR_LOCAL:
		if runner == nil {
			return nil, fmt.Errorf("local executor need a runner")
		}
		return NewLocalExecutor(runner), nil
	default:
		return nil, fmt.Errorf("not support executor type=%s", conf.ExecutorType)
	}
}
