package datastore

import (
	"fmt"

	"github.com/devsapp/serverless-automl-api/pkg/config"
)

type DatastoreFactory struct {
	Config *config.Config // nil means config.ConfigGlobal
}

func (f *DatastoreFactory) conf() *config.Config {
	if f.Config != nil {
		return f.Config
	}
	return config.ConfigGlobal
}

// NewTable open the table of dbType, create it if not exist
func (f *DatastoreFactory) NewTable(dbType DatastoreType, tableName string) (Datastore, error) {
	if _, ok := tableColumns[tableName]; !ok {
		return nil, fmt.Errorf("unknown table %s", tableName)
	}
	cfg := f.NewConfig(dbType, tableName)
	switch dbType {
	case SQLite:
		return NewSQLiteDatastore(cfg)
	case TableStore:
		return NewOtsDatastore(cfg, f.conf())
	case Redis:
		return NewRedisDatastore(cfg, f.conf())
	case Postgres:
		return NewPostgresDatastore(cfg)
	default:
		return nil, fmt.Errorf("not support db type=%s", dbType)
	}
}

// NewConfig table config of dbType
func (f *DatastoreFactory) NewConfig(dbType DatastoreType, tableName string) *Config {
	conf := f.conf()
	cfg := &Config{
		Type:                 dbType,
		TableName:            tableName,
		ColumnConfig:         make(map[string]string, len(tableColumns[tableName])),
		PrimaryKeyColumnName: tablePrimaryKey[tableName],
		TimeToAlive:          -1,
		MaxVersion:           1,
	}
	for name, typ := range tableColumns[tableName] {
		cfg.ColumnConfig[name] = typ
	}
	switch dbType {
	case SQLite:
		cfg.DBName = conf.DbSqlite
	case TableStore:
		cfg.DBName = conf.OtsInstanceName
		cfg.TimeToAlive = conf.OtsTimeToAlive
		cfg.MaxVersion = conf.OtsMaxVersion
		// ots primary key is declared apart from the attribute columns
		delete(cfg.ColumnConfig, cfg.PrimaryKeyColumnName)
	case Redis:
		cfg.DBName = conf.RedisAddr
	case Postgres:
		cfg.DBName = conf.PostgresDSN
	}
	return cfg
}
