package job

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
	"github.com/devsapp/serverless-automl-api/pkg/log"
	"github.com/devsapp/serverless-automl-api/pkg/metrics"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/go-redis/cache/v8"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// artifact categories reported by Delete
const (
	ArtifactDataset        = "dataset"
	ArtifactModel          = "model"
	ArtifactAlternateModel = "alternateModel"
	ArtifactReportPrefix   = "report:"
)

// Store the canonical job records. System columns (status, results,
// deploy flag) and user columns (tags, notes) are always written apart
// with partial updates so the two writers never clobber each other.
type Store struct {
	jobs     datastore.Datastore
	datasets datastore.Datastore
	objects  objectstore.ObjectStore
	conf     *config.Config

	// snapshots for BestEffort reads, nil when disabled
	snapshots *cache.Cache
	now       func() time.Time
}

type Option func(*Store)

// WithClock replace time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(jobs, datasets datastore.Datastore, objects objectstore.ObjectStore,
	conf *config.Config, opts ...Option) *Store {
	s := &Store{
		jobs:     jobs,
		datasets: datasets,
		objects:  objects,
		conf:     conf,
		now:      time.Now,
	}
	if conf.ReadCacheTTL > 0 && conf.ReadCacheSize > 0 {
		s.snapshots = cache.New(&cache.Options{
			LocalCache: cache.NewTinyLFU(conf.ReadCacheSize, conf.GetReadCacheTTL()),
		})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Objects the object store holding datasets and artifacts
func (s *Store) Objects() objectstore.ObjectStore {
	return s.objects
}

func makeCacheKey(id string) string {
	return fmt.Sprintf("automl:%s:%s", datastore.KJobTableName, id)
}

func (s *Store) invalidate(ctx context.Context, id string) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Delete(ctx, makeCacheKey(id)); err != nil {
		logrus.Debugf("invalidate snapshot %s: %v", id, err)
	}
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

// Create validate the spec against the dataset registry and write a pending job
func (s *Store) Create(ctx context.Context, spec CreateSpec) (*Job, error) {
	if spec.DatasetID == "" {
		return nil, errdefs.Validationf("datasetId is required")
	}
	if spec.TargetColumn == "" {
		return nil, errdefs.Validationf("targetColumn is required")
	}
	dataset, err := s.GetDataset(ctx, spec.DatasetID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, errdefs.Validationf("unknown dataset %s", spec.DatasetID)
		}
		return nil, err
	}
	if !dataset.HasColumn(spec.TargetColumn) {
		return nil, errdefs.Validationf("target column %s not in dataset %s", spec.TargetColumn, spec.DatasetID)
	}
	cfg, err := s.trainingConfig(spec.Config)
	if err != nil {
		return nil, err
	}

	now := time.UnixMilli(s.stamp()).UTC()
	j := &Job{
		ID:           uuid.New().String(),
		Status:       StatusPending,
		DatasetID:    dataset.ID,
		DatasetName:  dataset.Filename,
		TargetColumn: spec.TargetColumn,
		ProblemType:  inferProblemType(dataset.ColumnTypes[spec.TargetColumn]),
		Config:       cfg,
		Tags:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	row, err := jobToRow(j)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Put(j.ID, row); err != nil {
		return nil, fmt.Errorf("put job %s: %w", j.ID, err)
	}
	log.WithJob(j.ID).Infof("job created, dataset=%s target=%s", j.DatasetID, j.TargetColumn)
	metrics.JobTransitionCount.WithLabelValues(string(StatusPending)).Inc()
	return j, nil
}

func (s *Store) trainingConfig(in *TrainingConfig) (TrainingConfig, error) {
	cfg := TrainingConfig{TimeBudget: s.conf.DefaultTimeBudget, Metric: DefaultMetric}
	if in == nil {
		return cfg, nil
	}
	if in.TimeBudget != 0 {
		if in.TimeBudget < s.conf.MinTimeBudget || in.TimeBudget > s.conf.MaxTimeBudget {
			return cfg, errdefs.Validationf("timeBudget must be between %d and %d seconds",
				s.conf.MinTimeBudget, s.conf.MaxTimeBudget)
		}
		cfg.TimeBudget = in.TimeBudget
	}
	if in.Metric != "" {
		cfg.Metric = in.Metric
	}
	return cfg, nil
}

func inferProblemType(columnType string) ProblemType {
	if columnType == ColumnNumeric {
		return ProblemRegression
	}
	return ProblemClassification
}

// Get read one job, Strong always goes to the datastore
func (s *Store) Get(ctx context.Context, id string, consistency Consistency) (*Job, error) {
	if consistency == BestEffort && s.snapshots != nil {
		j := new(Job)
		if err := s.snapshots.Get(ctx, makeCacheKey(id), j); err == nil {
			return j, nil
		}
	}
	j, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if s.snapshots != nil {
		if err := s.snapshots.Set(&cache.Item{
			Ctx:   ctx,
			Key:   makeCacheKey(id),
			Value: j,
		}); err != nil {
			logrus.Warnf("cache job snapshot %s failed: %v", id, err)
		}
	}
	return j, nil
}

func (s *Store) load(id string) (*Job, error) {
	row, err := s.jobs.Get(id, jobColumns)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if row == nil {
		return nil, errdefs.NotFoundf("job %s not found", id)
	}
	return jobFromRow(id, row)
}

// update partial system write, a vanished row is NotFound
func (s *Store) update(ctx context.Context, id string, values map[string]interface{}) error {
	defer s.invalidate(ctx, id)
	if err := s.jobs.Update(id, values); err != nil {
		if errors.Is(err, datastore.ErrNotExist) {
			return errdefs.NotFoundf("job %s not found", id)
		}
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

// Transition move the job along pending -> running -> completed|failed.
// failed needs an error message, completed needs metrics and a model artifact.
func (s *Store) Transition(ctx context.Context, id string, to Status, in TransitionInput) (*Job, error) {
	if !to.Valid() {
		return nil, errdefs.Validationf("unknown status %q", to)
	}
	values := map[string]interface{}{
		datastore.KJobStatus: string(to),
	}
	now := s.stamp()
	switch to {
	case StatusRunning:
		values[datastore.KJobStartTime] = now
	case StatusFailed:
		if strings.TrimSpace(in.ErrorMessage) == "" {
			return nil, errdefs.Validationf("failed status requires an error message")
		}
		values[datastore.KJobError] = in.ErrorMessage
		values[datastore.KJobFinishTime] = now
	case StatusCompleted:
		if in.Result == nil || len(in.Result.Metrics) == 0 {
			return nil, errdefs.Validationf("completed status requires metrics")
		}
		if in.Result.Artifacts.ModelKey == "" {
			return nil, errdefs.Validationf("completed status requires a model artifact")
		}
		result, err := resultColumns(in.Result)
		if err != nil {
			return nil, err
		}
		for k, v := range result {
			values[k] = v
		}
		values[datastore.KJobFinishTime] = now
	}
	values[datastore.KJobModifyTime] = now

	current, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(ctx, current.Status, to); err != nil {
		return nil, err
	}
	if err := s.update(ctx, id, values); err != nil {
		return nil, err
	}
	entry := log.WithJob(id)
	if to == StatusFailed {
		entry.Warnf("job %s -> failed: %s", current.Status, in.ErrorMessage)
	} else {
		entry.Infof("job %s -> %s", current.Status, to)
	}
	metrics.JobTransitionCount.WithLabelValues(string(to)).Inc()
	return s.load(id)
}

// UpdateMetadata write only the user owned columns, the modify time is
// system owned and stays as it is
func (s *Store) UpdateMetadata(ctx context.Context, id string, update MetadataUpdate) (*Job, error) {
	values := make(map[string]interface{}, 2)
	if update.Tags != nil {
		tags, err := NormalizeTags(*update.Tags)
		if err != nil {
			return nil, err
		}
		encoded, err := toJSON(tags)
		if err != nil {
			return nil, err
		}
		values[datastore.KJobTags] = encoded
	}
	if update.Notes != nil {
		if err := ValidateNotes(*update.Notes); err != nil {
			return nil, err
		}
		values[datastore.KJobNotes] = *update.Notes
	}
	// strong read right before the write
	if _, err := s.load(id); err != nil {
		return nil, err
	}
	if len(values) > 0 {
		if err := s.update(ctx, id, values); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id, Strong)
}

// SetDeployed toggle the deploy flag, deployed=true needs a completed job
func (s *Store) SetDeployed(ctx context.Context, id string, deployed bool) (*Job, error) {
	current, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusCompleted {
		return nil, errdefs.Statef("cannot change deployment of job with status '%s', only completed jobs can be deployed", current.Status)
	}
	now := s.stamp()
	values := map[string]interface{}{
		datastore.KJobDeployed:   boolToInt(deployed),
		datastore.KJobDeployTime: nil,
		datastore.KJobModifyTime: now,
	}
	if deployed {
		values[datastore.KJobDeployTime] = now
	}
	if err := s.update(ctx, id, values); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, Strong)
}

// SetExecution record the executor handle of a submitted job
func (s *Store) SetExecution(ctx context.Context, id, executionID string) error {
	return s.update(ctx, id, map[string]interface{}{
		datastore.KJobExecutionId: executionID,
		datastore.KJobModifyTime:  s.stamp(),
	})
}

// Delete remove the record. With purge every known artifact is removed
// independently, failures are reported in the result and never abort the rest.
func (s *Store) Delete(ctx context.Context, id string, purge bool) (*DeleteResult, error) {
	j, err := s.load(id)
	if err != nil {
		return nil, err
	}
	result := &DeleteResult{Removed: []string{}, Failed: []string{}}
	if purge {
		var errs error
		record := func(category string, err error) {
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", category, err))
				result.Failed = append(result.Failed, category)
				metrics.ArtifactPurgeFailureCount.Inc()
				return
			}
			result.Removed = append(result.Removed, category)
		}
		if j.DatasetID != "" {
			record(ArtifactDataset, s.purgeDataset(ctx, j.DatasetID))
		}
		if j.Artifacts.ModelKey != "" {
			record(ArtifactModel, s.objects.Delete(ctx, j.Artifacts.ModelKey))
		}
		if j.Artifacts.AlternateModelKey != "" {
			record(ArtifactAlternateModel, s.objects.Delete(ctx, j.Artifacts.AlternateModelKey))
		}
		names := make([]string, 0, len(j.Artifacts.ReportKeys))
		for name := range j.Artifacts.ReportKeys {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			record(ArtifactReportPrefix+name, s.objects.Delete(ctx, j.Artifacts.ReportKeys[name]))
		}
		if errs != nil {
			log.WithJob(id).Warnf("purge artifacts partially failed: %v", errs)
		}
	}
	if err := s.jobs.Delete(id); err != nil {
		return nil, fmt.Errorf("delete job %s: %w", id, err)
	}
	s.invalidate(ctx, id)
	log.WithJob(id).Infof("job deleted, purge=%v removed=%v", purge, result.Removed)
	return result, nil
}

// purgeDataset every object under the dataset prefix plus its registry record
func (s *Store) purgeDataset(ctx context.Context, datasetID string) error {
	keys, err := s.objects.List(ctx, path.Join(config.DATASET_PREFIX, datasetID)+"/")
	if err != nil {
		return err
	}
	var errs error
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := s.DeleteDataset(ctx, datasetID); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// List newest first with an opaque offset token
func (s *Store) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit < 1 || limit > maxListLimit {
		return nil, errdefs.Validationf("limit must be between 1 and %d", maxListLimit)
	}
	offset := 0
	if opts.NextToken != "" {
		n, err := strconv.Atoi(opts.NextToken)
		if err != nil || n < 0 {
			return nil, errdefs.Validationf("invalid nextToken")
		}
		offset = n
	}
	tag := strings.ToLower(strings.TrimSpace(opts.Tag))

	rows, err := s.jobs.ListAll(jobColumns)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := make([]*Job, 0, len(rows))
	for id, row := range rows {
		j, err := jobFromRow(id, row)
		if err != nil {
			logrus.Warnf("skip undecodable job %s: %v", id, err)
			continue
		}
		if tag != "" && !j.HasTag(tag) {
			continue
		}
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(a, b int) bool {
		if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
		}
		return jobs[a].ID < jobs[b].ID
	})

	result := &ListResult{Jobs: []*Job{}}
	if offset >= len(jobs) {
		return result, nil
	}
	end := offset + limit
	if end < len(jobs) {
		result.NextToken = strconv.Itoa(end)
	} else {
		end = len(jobs)
	}
	result.Jobs = jobs[offset:end]
	return result, nil
}
