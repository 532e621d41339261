// Package jobtest builds job stores on in-memory backends for tests.
package jobtest

import (
	"context"
	"testing"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/stretchr/testify/require"
)

const DatasetID = "ds-housing"

// HousingCSV price = 3*area + 10, +5 in the south
const HousingCSV = `area,city,price
1,north,13
2,south,21
3,north,19
4,south,27
5,north,25
6,south,33
7,north,31
8,south,39
9,north,37
10,south,45
`

// NewStore sqlite :memory: tables, objects defaults to a memory store
func NewStore(t testing.TB, objects objectstore.ObjectStore) *job.Store {
	conf := config.DefaultConfig()
	conf.DbSqlite = ":memory:"
	factory := &datastore.DatastoreFactory{Config: conf}
	jobs, err := factory.NewTable(datastore.SQLite, datastore.KJobTableName)
	require.NoError(t, err)
	datasets, err := factory.NewTable(datastore.SQLite, datastore.KDatasetTableName)
	require.NoError(t, err)
	t.Cleanup(func() {
		jobs.Close()
		datasets.Close()
	})
	if objects == nil {
		objects = objectstore.NewMemoryStore("test")
	}
	return job.NewStore(jobs, datasets, objects, conf)
}

// AddHousing upload and register the housing dataset
func AddHousing(t testing.TB, store *job.Store) *job.Dataset {
	ctx := context.Background()
	d := &job.Dataset{
		ID:        DatasetID,
		Filename:  "housing.csv",
		ObjectKey: "datasets/" + DatasetID + "/housing.csv",
		Size:      int64(len(HousingCSV)),
		Rows:      10,
		Columns:   []string{"area", "city", "price"},
		ColumnTypes: map[string]string{
			"area":  job.ColumnNumeric,
			"city":  job.ColumnCategorical,
			"price": job.ColumnNumeric,
		},
	}
	require.NoError(t, store.Objects().Put(ctx, d.ObjectKey, []byte(HousingCSV)))
	require.NoError(t, store.RegisterDataset(ctx, d))
	return d
}

// NewJob pending job on the housing dataset
func NewJob(t testing.TB, store *job.Store, target string) *job.Job {
	j, err := store.Create(context.Background(), job.CreateSpec{DatasetID: DatasetID, TargetColumn: target})
	require.NoError(t, err)
	return j
}
