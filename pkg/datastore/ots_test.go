package datastore

import (
	"os"
	"testing"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendConfig table config for an integration backend, skip when the env is not set
func backendConfig(t *testing.T, dbType DatastoreType, env string) (*Config, *config.Config) {
	addr := os.Getenv(env)
	if addr == "" {
		t.Skipf("%s not set, skip %s integration test", env, dbType)
	}
	conf := config.DefaultConfig()
	switch dbType {
	case TableStore:
		conf.OtsEndpoint = addr
		if name := os.Getenv("OTS_INSTANCE"); name != "" {
			conf.OtsInstanceName = name
		}
	case Redis:
		conf.RedisAddr = addr
	case Postgres:
		conf.PostgresDSN = addr
	}
	cfg := &Config{
		Type:      dbType,
		TableName: "automl_it",
		ColumnConfig: map[string]string{
			"pk":    "TEXT PRIMARY KEY NOT NULL",
			"info":  "TEXT",
			"user":  "TEXT",
			"count": "INT",
		},
		PrimaryKeyColumnName: "pk",
		TimeToAlive:          -1,
		MaxVersion:           1,
	}
	switch dbType {
	case TableStore:
		cfg.DBName = conf.OtsInstanceName
		delete(cfg.ColumnConfig, "pk")
	case Redis:
		cfg.DBName = conf.RedisAddr
	case Postgres:
		cfg.DBName = conf.PostgresDSN
	}
	return cfg, conf
}

func exerciseDatastore(t *testing.T, store Datastore) {
	key := "it-key"
	defer store.Delete(key)

	// put
	err := store.Put(key, map[string]interface{}{"info": "test", "count": 1})
	require.NoError(t, err)
	data, err := store.Get(key, []string{"info", "count"})
	require.NoError(t, err)
	assert.Equal(t, "test", data["info"])
	assert.Equal(t, int64(1), data["count"])

	// partial update keeps other columns
	err = store.Update(key, map[string]interface{}{"user": "admin"})
	assert.NoError(t, err)
	data, err = store.Get(key, []string{"info", "user"})
	require.NoError(t, err)
	assert.Equal(t, "test", data["info"])
	assert.Equal(t, "admin", data["user"])

	assert.ErrorIs(t, store.Update("it-missing", map[string]interface{}{"user": "x"}), ErrNotExist)

	all, err := store.ListAll([]string{"info"})
	require.NoError(t, err)
	assert.Contains(t, all, key)

	assert.NoError(t, store.Delete(key))
	data, err = store.Get(key, []string{"info"})
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestOts(t *testing.T) {
	cfg, conf := backendConfig(t, TableStore, "OTS_ENDPOINT")
	if conf.AccessKeyId == "" {
		t.Skip("ACCESS_KEY_ID not set")
	}
	store, err := NewOtsDatastore(cfg, conf)
	require.NoError(t, err)
	defer store.Close()
	exerciseDatastore(t, store)
}

func TestRedis(t *testing.T) {
	cfg, conf := backendConfig(t, Redis, "REDIS_ADDR")
	store, err := NewRedisDatastore(cfg, conf)
	require.NoError(t, err)
	defer store.Close()
	exerciseDatastore(t, store)
}

func TestPostgres(t *testing.T) {
	cfg, _ := backendConfig(t, Postgres, "POSTGRES_DSN")
	store, err := NewPostgresDatastore(cfg)
	require.NoError(t, err)
	defer store.Close()
	exerciseDatastore(t, store)
}

func TestPostgresType(t *testing.T) {
	assert.Equal(t, "TEXT", postgresType("TEXT PRIMARY KEY NOT NULL"))
	assert.Equal(t, "BIGINT", postgresType("INT"))
	assert.Equal(t, "DOUBLE PRECISION", postgresType("float"))
	assert.Equal(t, `"JOB_ID"`, quote("JOB_ID"))
}
