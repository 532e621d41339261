package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/job/jobtest"
	"github.com/devsapp/serverless-automl-api/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicSearcher struct{}

func (panicSearcher) Search(context.Context, *search.Input) (*search.Output, error) {
	panic("native library missing")
}

func TestRunCompletes(t *testing.T) {
	ctx := context.Background()
	store := jobtest.NewStore(t, nil)
	jobtest.AddHousing(t, store)
	j := jobtest.NewJob(t, store, "price")

	require.NoError(t, NewRunner(store, nil).Run(ctx, j.ID))

	done, err := store.Get(ctx, j.ID, job.Strong)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, done.Status)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.FinishedAt)
	assert.Contains(t, done.Metrics, "rmse")
	assert.Equal(t, ModelKey(j.ID), done.Artifacts.ModelKey)
	assert.Equal(t, AlternateModelKey(j.ID), done.Artifacts.AlternateModelKey)
	assert.Equal(t, ReportKey(j.ID, ReportTraining), done.Artifacts.ReportKeys[ReportTraining])
	assert.Equal(t, ReportKey(j.ID, ReportEDA), done.Artifacts.ReportKeys[ReportEDA])
	require.NotNil(t, done.Features)
	assert.Equal(t, "price", done.Features.TargetColumn)

	body, err := store.Objects().Get(ctx, done.Artifacts.ModelKey)
	require.NoError(t, err)
	artifact, err := search.DecodeArtifact(body)
	require.NoError(t, err)
	assert.Equal(t, job.ProblemRegression, artifact.ProblemType)

	// a redelivered invocation leaves the terminal job alone
	require.NoError(t, NewRunner(store, nil).Run(ctx, j.ID))
	again, err := store.Get(ctx, j.ID, job.Strong)
	require.NoError(t, err)
	assert.Equal(t, done.FinishedAt, again.FinishedAt)
}

func TestRunStartupFailures(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		factory SearcherFactory
		message string
	}{
		{
			name: "missing capability",
			factory: func(job.ProblemType) (search.Searcher, error) {
				return nil, errors.New("searcher backend not installed")
			},
			message: "searcher backend not installed",
		},
		{
			name: "panic",
			factory: func(job.ProblemType) (search.Searcher, error) {
				return panicSearcher{}, nil
			},
			message: "panic: native library missing",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := jobtest.NewStore(t, nil)
			jobtest.AddHousing(t, store)
			j := jobtest.NewJob(t, store, "price")

			err := NewRunner(store, c.factory).Run(ctx, j.ID)
			assert.True(t, errdefs.IsExecution(err))

			failed, err := store.Get(ctx, j.ID, job.Strong)
			require.NoError(t, err)
			assert.Equal(t, job.StatusFailed, failed.Status)
			assert.Contains(t, failed.ErrorMessage, c.message)
		})
	}
}

func TestRunMissingDatasetObject(t *testing.T) {
	ctx := context.Background()
	store := jobtest.NewStore(t, nil)
	d := jobtest.AddHousing(t, store)
	j := jobtest.NewJob(t, store, "price")
	require.NoError(t, store.Objects().Delete(ctx, d.ObjectKey))

	err := NewRunner(store, nil).Run(ctx, j.ID)
	assert.Error(t, err)
	failed, err := store.Get(ctx, j.ID, job.Strong)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "download dataset")
}

func TestRunUnknownJob(t *testing.T) {
	store := jobtest.NewStore(t, nil)
	err := NewRunner(store, nil).Run(context.Background(), "missing")
	assert.True(t, errdefs.IsExecution(err))
}
