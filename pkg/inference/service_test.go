package inference

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/job/jobtest"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/devsapp/serverless-automl-api/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore memory store that counts downloads
type countingStore struct {
	*objectstore.MemoryStore
	gets int32
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt32(&c.gets, 1)
	return c.MemoryStore.Get(ctx, key)
}

var housingFeatures = []job.Feature{
	{Name: "area", Type: job.ColumnNumeric},
	{Name: "city", Type: job.ColumnCategorical, Categories: []string{"north", "south"}},
}

func priceModel() *search.Artifact {
	return &search.Artifact{
		Format:       search.ArtifactFormat,
		ProblemType:  job.ProblemRegression,
		TargetColumn: "price",
		Features:     housingFeatures,
		Metrics:      map[string]float64{"rmse": 0.002},
		Regression: &search.LinearRegression{
			Fitted:       true,
			Intercept:    0.0991,
			Coefficients: []float64{0, 0},
			Means:        []float64{0, 0},
			Scales:       []float64{1, 1},
		},
	}
}

type fixture struct {
	store   *job.Store
	objects *countingStore
	cache   *ModelCache
	service *Service
	conf    *config.Config
}

func newFixture(t *testing.T, warm bool) *fixture {
	objects := &countingStore{MemoryStore: objectstore.NewMemoryStore("test")}
	store := jobtest.NewStore(t, objects)
	jobtest.AddHousing(t, store)
	conf := config.DefaultConfig()
	conf.WarmOnDeploy = warm
	cache := NewModelCache(2, 2)
	return &fixture{
		store:   store,
		objects: objects,
		cache:   cache,
		service: NewService(store, cache, conf),
		conf:    conf,
	}
}

// completed job on target with the model uploaded, nil model leaves the key empty in the store
func (f *fixture) completed(t *testing.T, target string, model *search.Artifact) *job.Job {
	ctx := context.Background()
	j := jobtest.NewJob(t, f.store, target)
	_, err := f.store.Transition(ctx, j.ID, job.StatusRunning, job.TransitionInput{})
	require.NoError(t, err)
	key := "models/" + j.ID + "/model.json"
	schema := &job.FeatureSchema{TargetColumn: target}
	metrics := map[string]float64{"accuracy": 1}
	if model != nil {
		body, err := search.EncodeArtifact(model)
		require.NoError(t, err)
		require.NoError(t, f.objects.Put(ctx, key, body))
		schema.Features = model.Features
		metrics = model.Metrics
		if model.Classifier != nil {
			schema.TargetClasses = model.Classifier.Classes
		}
	}
	done, err := f.store.Transition(ctx, j.ID, job.StatusCompleted, job.TransitionInput{
		Result: &job.Result{
			Metrics:   metrics,
			Artifacts: job.Artifacts{ModelKey: key},
			Features:  schema,
		},
	})
	require.NoError(t, err)
	return done
}

func TestDeployThenPredict(t *testing.T) {
	ctx := context.Background()
	for _, warm := range []bool{true, false} {
		f := newFixture(t, warm)
		j := f.completed(t, "price", priceModel())

		deployed, err := f.service.Deploy(ctx, j.ID)
		require.NoError(t, err)
		assert.True(t, deployed.Deployed)
		assert.NotNil(t, deployed.DeployedAt)

		res, err := f.service.Predict(ctx, j.ID, map[string]interface{}{"area": 42, "city": "south"})
		require.NoError(t, err)
		assert.InDelta(t, 0.0991, res.Value, 1e-12)
		require.NotNil(t, res.ErrorMargin)
		assert.Equal(t, 0.002, *res.ErrorMargin)
		assert.Equal(t, "price", res.TargetColumn)
		assert.InDelta(t, 0.0971, res.Lower(), 1e-12)
		assert.InDelta(t, 0.1011, res.Upper(), 1e-12)
		assert.Equal(t, warm, res.CacheHit)

		res, err = f.service.Predict(ctx, j.ID, map[string]interface{}{"area": "7", "city": "east"})
		require.NoError(t, err)
		assert.True(t, res.CacheHit)
		assert.Equal(t, int32(1), atomic.LoadInt32(&f.objects.gets))
	}
}

func TestPredictSurvivesCacheWipe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	j := f.completed(t, "price", priceModel())
	_, err := f.service.Deploy(ctx, j.ID)
	require.NoError(t, err)

	f.cache.Purge()
	assert.Equal(t, 0, f.cache.Len())
	res, err := f.service.Predict(ctx, j.ID, map[string]interface{}{"area": 1, "city": "north"})
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.InDelta(t, 0.0991, res.Value, 1e-12)

	// a fresh cache behaves the same
	fresh := NewService(f.store, NewModelCache(0, 0), f.conf)
	res, err = fresh.Predict(ctx, j.ID, map[string]interface{}{"area": 1, "city": "north"})
	require.NoError(t, err)
	assert.Equal(t, "price", res.TargetColumn)
}

func TestClassification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	model := &search.Artifact{
		Format:       search.ArtifactFormat,
		ProblemType:  job.ProblemClassification,
		TargetColumn: "city",
		Features:     []job.Feature{{Name: "area", Type: job.ColumnNumeric}},
		Metrics:      map[string]float64{"accuracy": 0.9},
		Classifier: &search.CentroidClassifier{
			Classes:   []string{"north", "south"},
			Centroids: [][]float64{{0}, {10}},
			Means:     []float64{0},
			Scales:    []float64{1},
		},
	}
	j := f.completed(t, "city", model)
	require.Equal(t, job.ProblemClassification, j.ProblemType)
	_, err := f.service.Deploy(ctx, j.ID)
	require.NoError(t, err)

	res, err := f.service.Predict(ctx, j.ID, map[string]interface{}{"area": 9.5})
	require.NoError(t, err)
	assert.Equal(t, "south", res.Label)
	assert.Equal(t, "city", res.TargetColumn)
	assert.Greater(t, res.Confidence, 0.99)
	assert.InDelta(t, 1.0, res.Probabilities["north"]+res.Probabilities["south"], 1e-9)
	assert.Nil(t, res.ErrorMargin)
}

func TestDeployRequiresCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	j := jobtest.NewJob(t, f.store, "price")

	_, err := f.service.Deploy(ctx, j.ID)
	assert.True(t, errdefs.IsState(err))
	_, err = f.service.Undeploy(ctx, j.ID)
	assert.True(t, errdefs.IsState(err))
	stored, err := f.store.Get(ctx, j.ID, job.Strong)
	require.NoError(t, err)
	assert.False(t, stored.Deployed)

	_, err = f.service.Deploy(ctx, "missing")
	assert.True(t, errdefs.IsNotFound(err))
}

func TestUndeploy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	j := f.completed(t, "price", priceModel())
	_, err := f.service.Deploy(ctx, j.ID)
	require.NoError(t, err)
	_, ok := f.cache.Peek(j.ID)
	require.True(t, ok)

	undeployed, err := f.service.Undeploy(ctx, j.ID)
	require.NoError(t, err)
	assert.False(t, undeployed.Deployed)
	assert.Nil(t, undeployed.DeployedAt)
	_, ok = f.cache.Peek(j.ID)
	assert.False(t, ok)

	_, err = f.service.Predict(ctx, j.ID, map[string]interface{}{"area": 1, "city": "north"})
	assert.True(t, errdefs.IsNotDeployed(err))
}

func TestWarmFailureKeepsDeploy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	j := f.completed(t, "price", priceModel())
	require.NoError(t, f.objects.Delete(ctx, j.Artifacts.ModelKey))

	deployed, err := f.service.Deploy(ctx, j.ID)
	require.NoError(t, err)
	assert.True(t, deployed.Deployed)
	assert.Equal(t, 0, f.cache.Len())

	_, err = f.service.Predict(ctx, j.ID, map[string]interface{}{"area": 1, "city": "north"})
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestAlternateModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	j := f.completed(t, "price", priceModel())
	require.NoError(t, f.objects.Put(ctx, j.Artifacts.ModelKey, []byte("{broken")))
	alt, err := search.EncodeGob(priceModel())
	require.NoError(t, err)
	j.Artifacts.AlternateModelKey = "models/" + j.ID + "/model.gob"
	require.NoError(t, f.objects.Put(ctx, j.Artifacts.AlternateModelKey, alt))

	model, err := f.service.loader(j)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "price", model.TargetColumn)
}

func TestPredictValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	j := f.completed(t, "price", priceModel())
	_, err := f.service.Deploy(ctx, j.ID)
	require.NoError(t, err)

	_, err = f.service.Predict(ctx, j.ID, map[string]interface{}{"area": 1})
	assert.True(t, errdefs.IsValidation(err))
	assert.ErrorContains(t, err, "city")
	_, err = f.service.Predict(ctx, j.ID, map[string]interface{}{"area": "big", "city": "north"})
	assert.True(t, errdefs.IsValidation(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.objects.gets))
}

func TestPredictInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	j := f.completed(t, "price", priceModel())

	info, err := f.service.PredictInfo(ctx, j.ID)
	require.NoError(t, err)
	assert.False(t, info.Deployed)
	assert.Equal(t, "price", info.TargetColumn)
	assert.Equal(t, job.ProblemRegression, info.ProblemType)
	assert.Equal(t, housingFeatures, info.Features)
	assert.Equal(t, map[string]interface{}{"area": 0, "city": "north"}, info.ExampleRequest)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.objects.gets))

	pending := jobtest.NewJob(t, f.store, "price")
	_, err = f.service.PredictInfo(ctx, pending.ID)
	assert.True(t, errdefs.IsState(err))
}

func TestEncodeFeatures(t *testing.T) {
	schema := &job.FeatureSchema{Features: housingFeatures}
	row, err := EncodeFeatures(schema, map[string]interface{}{"area": 3.5, "city": "south", "extra": true})
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 1}, row)

	row, err = EncodeFeatures(schema, map[string]interface{}{"area": "2", "city": "west"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, -1}, row)

	_, err = EncodeFeatures(nil, map[string]interface{}{})
	assert.True(t, errdefs.IsState(err))
}

func TestModelCacheSharedLoad(t *testing.T) {
	cache := NewModelCache(2, 1)
	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (*search.Artifact, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return priceModel(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, _, err := cache.GetOrLoad(context.Background(), "job-1", load)
			assert.NoError(t, err)
			assert.Equal(t, "price", entry.Model.TargetColumn)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	entry, hit, err := cache.GetOrLoad(context.Background(), "job-1", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, priceModel().Cost(), entry.Cost)
}

func TestModelCacheBounded(t *testing.T) {
	cache := NewModelCache(2, 2)
	load := func(context.Context) (*search.Artifact, error) { return priceModel(), nil }
	for _, id := range []string{"a", "b", "c"} {
		_, _, err := cache.GetOrLoad(context.Background(), id, load)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())
	_, ok := cache.Peek("a")
	assert.False(t, ok)

	failing := func(context.Context) (*search.Artifact, error) { return nil, errors.New("gone") }
	_, _, err := cache.GetOrLoad(context.Background(), "d", failing)
	assert.ErrorContains(t, err, "gone")
	assert.Equal(t, 2, cache.Len())

	cache.Invalidate("b")
	assert.Equal(t, 1, cache.Len())
}

func TestModelCacheInvalidateDuringLoad(t *testing.T) {
	cache := NewModelCache(2, 1)
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(context.Context) (*search.Artifact, error) {
		close(started)
		<-release
		return priceModel(), nil
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrLoad(context.Background(), "job-1", load)
		done <- err
	}()
	<-started
	cache.Invalidate("job-1")
	close(release)
	require.NoError(t, <-done)

	// the waiter got its model but the stale load was not cached
	_, ok := cache.Peek("job-1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	_, hit, err := cache.GetOrLoad(context.Background(), "job-1",
		func(context.Context) (*search.Artifact, error) { return priceModel(), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	_, ok = cache.Peek("job-1")
	assert.True(t, ok)
}

func TestModelCacheLoaderOutlivesCaller(t *testing.T) {
	cache := NewModelCache(2, 1)
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (*search.Artifact, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return priceModel(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrLoad(first, "job-1", load)
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrLoad(context.Background(), "job-1", load)
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	_, ok := cache.Peek("job-1")
	assert.True(t, ok)
}
