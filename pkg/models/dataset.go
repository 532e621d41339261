package models

import "time"

type UploadRequest struct {
	Filename string `json:"filename"`
}

type UploadResponse struct {
	DatasetID string `json:"datasetId"`
	ObjectKey string `json:"objectKey"`
	UploadURL string `json:"uploadUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

type DatasetResponse struct {
	DatasetID   string            `json:"datasetId"`
	Filename    string            `json:"filename"`
	Size        int64             `json:"size"`
	Rows        int64             `json:"rowCount"`
	Columns     []string          `json:"columns"`
	ColumnTypes map[string]string `json:"columnTypes"`
	CreatedAt   time.Time         `json:"createdAt"`
}
