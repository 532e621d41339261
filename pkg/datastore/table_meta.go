package datastore

// jobs table
const (
	KJobTableName    = "jobs"
	KJobId           = "JOB_ID"
	KJobStatus       = "JOB_STATUS"
	KJobDatasetId    = "JOB_DATASET_ID"
	KJobDatasetName  = "JOB_DATASET_NAME"
	KJobTargetColumn = "JOB_TARGET_COLUMN"
	KJobProblemType  = "JOB_PROBLEM_TYPE"
	KJobConfig       = "JOB_CONFIG"
	KJobExecutionId  = "JOB_EXECUTION_ID"
	KJobMetrics      = "JOB_METRICS"
	KJobArtifacts    = "JOB_ARTIFACTS"
	KJobFeatures     = "JOB_FEATURES"
	KJobError        = "JOB_ERROR"
	KJobTags         = "JOB_TAGS"
	KJobNotes        = "JOB_NOTES"
	KJobDeployed     = "JOB_DEPLOYED"
	KJobCreateTime   = "JOB_CREATE_TIME"
	KJobStartTime    = "JOB_START_TIME"
	KJobFinishTime   = "JOB_FINISH_TIME"
	KJobModifyTime   = "JOB_MODIFY_TIME"
	KJobDeployTime   = "JOB_DEPLOY_TIME"
)

// datasets table
const (
	KDatasetTableName   = "datasets"
	KDatasetId          = "DATASET_ID"
	KDatasetFilename    = "DATASET_FILENAME"
	KDatasetObjectKey   = "DATASET_OBJECT_KEY"
	KDatasetSize        = "DATASET_SIZE"
	KDatasetRows        = "DATASET_ROWS"
	KDatasetColumns     = "DATASET_COLUMNS"
	KDatasetColumnTypes = "DATASET_COLUMN_TYPES"
	KDatasetCreateTime  = "DATASET_CREATE_TIME"
)

// column name -> type of every table
var tableColumns = map[string]map[string]string{
	KJobTableName: {
		KJobId:           "TEXT PRIMARY KEY NOT NULL",
		KJobStatus:       "TEXT",
		KJobDatasetId:    "TEXT",
		KJobDatasetName:  "TEXT",
		KJobTargetColumn: "TEXT",
		KJobProblemType:  "TEXT",
		KJobConfig:       "TEXT",
		KJobExecutionId:  "TEXT",
		KJobMetrics:      "TEXT",
		KJobArtifacts:    "TEXT",
		KJobFeatures:     "TEXT",
		KJobError:        "TEXT",
		KJobTags:         "TEXT",
		KJobNotes:        "TEXT",
		KJobDeployed:     "INT",
		KJobCreateTime:   "INT",
		KJobStartTime:    "INT",
		KJobFinishTime:   "INT",
		KJobModifyTime:   "INT",
		KJobDeployTime:   "INT",
	},
	KDatasetTableName: {
		KDatasetId:          "TEXT PRIMARY KEY NOT NULL",
		KDatasetFilename:    "TEXT",
		KDatasetObjectKey:   "TEXT",
		KDatasetSize:        "INT",
		KDatasetRows:        "INT",
		KDatasetColumns:     "TEXT",
		KDatasetColumnTypes: "TEXT",
		KDatasetCreateTime:  "INT",
	},
}

var tablePrimaryKey = map[string]string{
	KJobTableName:     KJobId,
	KDatasetTableName: KDatasetId,
}
