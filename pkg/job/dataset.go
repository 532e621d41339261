package job

import (
	"context"
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/errdefs"
)

// RegisterDataset insert or replace a dataset record
func (s *Store) RegisterDataset(_ context.Context, d *Dataset) error {
	if d.ID == "" {
		return errdefs.Validationf("dataset id is required")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now().UTC()
	}
	row, err := datasetToRow(d)
	if err != nil {
		return err
	}
	if err := s.datasets.Put(d.ID, row); err != nil {
		return fmt.Errorf("put dataset %s: %w", d.ID, err)
	}
	return nil
}

func (s *Store) GetDataset(_ context.Context, id string) (*Dataset, error) {
	row, err := s.datasets.Get(id, datasetColumns)
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}
	if row == nil {
		return nil, errdefs.NotFoundf("dataset %s not found", id)
	}
	return datasetFromRow(id, row)
}

func (s *Store) DeleteDataset(_ context.Context, id string) error {
	return s.datasets.Delete(id)
}
