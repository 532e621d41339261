package server

import (
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/datastore"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/objectstore"
	"github.com/sirupsen/logrus"
)

// Backend job store over the configured tables and object store
type Backend struct {
	Store  *job.Store
	tables []datastore.Datastore
}

func NewBackend(conf *config.Config, dbType datastore.DatastoreType) (*Backend, error) {
	objects, err := objectstore.New(conf)
	if err != nil {
		return nil, fmt.Errorf("object store init: %w", err)
	}
	tableFactory := datastore.DatastoreFactory{Config: conf}
	// init job table
	jobs, err := tableFactory.NewTable(dbType, datastore.KJobTableName)
	if err != nil {
		return nil, fmt.Errorf("job table init: %w", err)
	}
	// init dataset table
	datasets, err := tableFactory.NewTable(dbType, datastore.KDatasetTableName)
	if err != nil {
		jobs.Close()
		return nil, fmt.Errorf("dataset table init: %w", err)
	}
	return &Backend{
		Store:  job.NewStore(jobs, datasets, objects, conf),
		tables: []datastore.Datastore{jobs, datasets},
	}, nil
}

func (b *Backend) Close() {
	for _, table := range b.tables {
		if err := table.Close(); err != nil {
			logrus.Warnf("close table: %v", err)
		}
	}
}
