package config

import "time"

// env
const (
	ACCOUNT_ID        = "ACCOUNT_ID"
	ACCESS_KEY_ID     = "ACCESS_KEY_ID"
	ACCESS_KEY_SECRET = "ACCESS_KEY_SECRET"
	ACCESS_KEY_TOKEN  = "ACCESS_KEY_TOKEN"
	REGION            = "REGION"
)

// db type
const (
	DB_SQLITE     = "sqlite"
	DB_TABLESTORE = "tableStore"
	DB_REDIS      = "redis"
	DB_POSTGRES   = "postgres"
)

// object store type
const (
	STORE_OSS    = "oss"
	STORE_S3     = "s3"
	STORE_MINIO  = "minio"
	STORE_MEMORY = "memory"
)

// executor type
const (
	EXECUTOR_FC    = "fc"
	EXECUTOR_K8S   = "kubernetes"
	EXECUTOR_LOCAL = "local"
)

const (
	HTTPTIMEOUT = 60 * time.Second
	// rows sampled when a dataset is confirmed
	DATASET_SAMPLE_ROWS = 200
)

// ERROR message
const (
	INTERNALERROR = "an internal error"
	BADREQUEST    = "bad request body"
	NOTFOUND      = "not found"
	UNAUTHORIZED  = "invalid api key"
)

// object key layout
const (
	DATASET_PREFIX = "datasets"
	MODEL_PREFIX   = "models"
	REPORT_PREFIX  = "reports"
)
