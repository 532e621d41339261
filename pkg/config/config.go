package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

var ConfigGlobal = DefaultConfig()

type Config struct {
	// account
	AccountId       string `yaml:"accountId"`
	AccessKeyId     string `yaml:"-"`
	AccessKeySecret string `yaml:"-"`
	AccessKeyToken  string `yaml:"-"`
	Region          string `yaml:"region"`

	// server
	Mode              string `yaml:"mode"` // debug|dev|product
	LogFile           string `yaml:"logFile"`
	ApiKeyHash        string `yaml:"apiKeyHash"`
	RequestValidation bool   `yaml:"requestValidation"`

	// db
	DbType        string `yaml:"dbType"` // sqlite|tableStore|redis|postgres
	DbSqlite      string `yaml:"dbSqlite"`
	ReadCacheSize int    `yaml:"readCacheSize"`
	ReadCacheTTL  int    `yaml:"readCacheTTL"` // best-effort snapshot ttl/second, 0 disable

	// ots
	OtsEndpoint     string `yaml:"otsEndpoint"`
	OtsInstanceName string `yaml:"otsInstanceName"`
	OtsTimeToAlive  int    `yaml:"otsTimeToAlive"` // data expired time/second
	OtsMaxVersion   int    `yaml:"otsMaxVersion"`  // data column max version nums

	// redis
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	// postgres
	PostgresDSN string `yaml:"postgresDSN"`

	// object store
	ObjectStoreType string `yaml:"objectStoreType"` // oss|s3|minio|memory
	OssEndpoint     string `yaml:"ossEndpoint"`
	S3Endpoint      string `yaml:"s3Endpoint"`
	MinioEndpoint   string `yaml:"minioEndpoint"`
	MinioUseSSL     bool   `yaml:"minioUseSSL"`
	Bucket          string `yaml:"bucket"`
	PresignExpire   int    `yaml:"presignExpire"` // second

	// executor
	ExecutorType      string `yaml:"executorType"` // fc|kubernetes|local
	ServiceName       string `yaml:"serviceName"`  // empty means fc3
	FunctionName      string `yaml:"functionName"`
	Qualifier         string `yaml:"qualifier"`
	K8sNamespace      string `yaml:"k8sNamespace"`
	K8sImage          string `yaml:"k8sImage"`
	K8sServiceAccount string `yaml:"k8sServiceAccount"`
	Kubeconfig        string `yaml:"kubeconfig"`

	// training
	DefaultTimeBudget int `yaml:"defaultTimeBudget"`
	MinTimeBudget     int `yaml:"minTimeBudget"`
	MaxTimeBudget     int `yaml:"maxTimeBudget"`

	// inference
	ModelCacheSize       int  `yaml:"modelCacheSize"`
	ColdStartConcurrency int  `yaml:"coldStartConcurrency"`
	WarmOnDeploy         bool `yaml:"warmOnDeploy"`
	WarmTimeout          int  `yaml:"warmTimeout"`        // second
	CacheSweepInterval   int  `yaml:"cacheSweepInterval"` // second, 0 disable

	// stream
	StreamInterval    int `yaml:"streamInterval"`    // second
	StreamMaxDuration int `yaml:"streamMaxDuration"` // second
}

func DefaultConfig() *Config {
	return &Config{
		AccountId:            os.Getenv(ACCOUNT_ID),
		AccessKeyId:          os.Getenv(ACCESS_KEY_ID),
		AccessKeySecret:      os.Getenv(ACCESS_KEY_SECRET),
		AccessKeyToken:       os.Getenv(ACCESS_KEY_TOKEN),
		Region:               "cn-beijing",
		Mode:                 "dev",
		RequestValidation:    true,
		DbType:               "sqlite",
		DbSqlite:             "./sqlite3",
		ReadCacheSize:        1024,
		ReadCacheTTL:         1,
		OtsEndpoint:          "https://automl.cn-beijing.ots.aliyuncs.com",
		OtsInstanceName:      "automl",
		OtsMaxVersion:        1,
		OtsTimeToAlive:       -1,
		RedisAddr:            "localhost:6379",
		ObjectStoreType:      "oss",
		OssEndpoint:          "oss-cn-beijing.aliyuncs.com",
		Bucket:               "automl-artifacts",
		PresignExpire:        3600,
		ExecutorType:         "fc",
		FunctionName:         "automl-training-worker",
		K8sNamespace:         "default",
		DefaultTimeBudget:    300,
		MinTimeBudget:        60,
		MaxTimeBudget:        3600,
		ModelCacheSize:       8,
		ColdStartConcurrency: 4,
		WarmOnDeploy:         true,
		WarmTimeout:          10,
		CacheSweepInterval:   60,
		StreamInterval:       3,
		StreamMaxDuration:    300,
	}
}

// InitConfig load config file (optional) over the defaults, credentials come from env
func InitConfig(fn string) error {
	cfg := DefaultConfig()
	if fn != "" {
		if err := cfg.loadFile(fn); err != nil {
			return err
		}
	}
	cfg.loadEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	ConfigGlobal = cfg
	return nil
}

func (c *Config) loadFile(fn string) error {
	body, err := os.ReadFile(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", fn, err)
	}
	if err := yaml.Unmarshal(body, c); err != nil {
		return fmt.Errorf("parse config %s: %w", fn, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv(ACCOUNT_ID); v != "" {
		c.AccountId = v
	}
	if v := os.Getenv(REGION); v != "" {
		c.Region = v
	}
	c.AccessKeyId = os.Getenv(ACCESS_KEY_ID)
	c.AccessKeySecret = os.Getenv(ACCESS_KEY_SECRET)
	c.AccessKeyToken = os.Getenv(ACCESS_KEY_TOKEN)
}

// Validate check the backends selected have what they need
func (c *Config) Validate() error {
	if c.needCloudCredential() && (c.AccessKeyId == "" || c.AccessKeySecret == "") {
		return errors.New("not set ACCESS_KEY_ID || ACCESS_KEY_SECRET, please check")
	}
	if c.ExecutorType == EXECUTOR_FC && c.AccountId == "" {
		return errors.New("not set ACCOUNT_ID, fc executor need it")
	}
	if c.ExecutorType == EXECUTOR_K8S && c.K8sImage == "" {
		return errors.New("k8sImage is required by kubernetes executor")
	}
	if c.DbType == DB_POSTGRES && c.PostgresDSN == "" {
		return errors.New("postgresDSN is required by postgres datastore")
	}
	if c.MinTimeBudget <= 0 || c.MinTimeBudget > c.MaxTimeBudget ||
		c.DefaultTimeBudget < c.MinTimeBudget || c.DefaultTimeBudget > c.MaxTimeBudget {
		return fmt.Errorf("invalid time budget range %d..%d default %d",
			c.MinTimeBudget, c.MaxTimeBudget, c.DefaultTimeBudget)
	}
	if c.StreamInterval <= 0 || c.StreamMaxDuration < c.StreamInterval {
		return errors.New("streamInterval must be positive and not above streamMaxDuration")
	}
	return nil
}

func (c *Config) needCloudCredential() bool {
	return c.ExecutorType == EXECUTOR_FC || c.DbType == DB_TABLESTORE ||
		c.ObjectStoreType == STORE_OSS || c.ObjectStoreType == STORE_S3 || c.ObjectStoreType == STORE_MINIO
}

func (c *Config) GetPresignExpire() time.Duration {
	return time.Duration(c.PresignExpire) * time.Second
}

func (c *Config) GetReadCacheTTL() time.Duration {
	return time.Duration(c.ReadCacheTTL) * time.Second
}

func (c *Config) GetWarmTimeout() time.Duration {
	return time.Duration(c.WarmTimeout) * time.Second
}

func (c *Config) GetCacheSweepInterval() time.Duration {
	return time.Duration(c.CacheSweepInterval) * time.Second
}

func (c *Config) GetStreamInterval() time.Duration {
	return time.Duration(c.StreamInterval) * time.Second
}

func (c *Config) GetStreamMaxDuration() time.Duration {
	return time.Duration(c.StreamMaxDuration) * time.Second
}

func (c *Config) EnableApiKey() bool {
	return c.ApiKeyHash != ""
}
