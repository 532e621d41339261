package datastore

import (
	"errors"
	"strings"
)

type DatastoreType string

const (
	SQLite     DatastoreType = "sqlite"
	TableStore DatastoreType = "tableStore"
	Redis      DatastoreType = "redis"
	Postgres   DatastoreType = "postgres"
)

// ErrNotExist returned by Update when the key is absent
var ErrNotExist = errors.New("datastore: key not exist")

type Config struct {
	Type                 DatastoreType // the datastore type
	DBName               string        // the database name, dsn or address
	TableName            string
	ColumnConfig         map[string]string // map of column name to column type
	PrimaryKeyColumnName string
	TimeToAlive          int
	MaxVersion           int
}

type Datastore interface {
	// Put inserts or replaces the row of key with the column values.
	// It takes a key and a map of column names to values, and returns an error if the operation failed.
	Put(key string, values map[string]interface{}) error

	// Update the partial column values, other columns of the row are left untouched.
	// It returns ErrNotExist if the key does not exist.
	Update(key string, values map[string]interface{}) error

	// Get retrieves the column values from the datastore.
	// It takes a key and a slice of column names, and returns a map of column names to values,
	// along with an error if the operation failed. Null columns are left out of the map.
	// If the key does not exist, the returned map and error are both nil.
	Get(key string, columns []string) (map[string]interface{}, error)

	// Delete removes a value from the datastore.
	// Note: delete a non-existent key will not return an error.
	Delete(key string) error

	// ListAll read all data from the datastore.
	// It takes a list of column name, and  return a nested map, which means map[primaryKey]map[columanName]columanValue.
	// Note: since it reads all data and store them in memory, so do not call this function on a large datastore.
	ListAll(columns []string) (map[string]map[string]interface{}, error)

	// Close close the datastore.
	Close() error
}

// column kinds, values read back are string, int64 and float64
const (
	kindText  = "text"
	kindInt   = "int"
	kindFloat = "float"
)

// columnKind "TEXT PRIMARY KEY NOT NULL" -> text
func columnKind(typ string) string {
	t := strings.ToLower(strings.TrimSpace(typ))
	switch {
	case strings.HasPrefix(t, "text"):
		return kindText
	case strings.HasPrefix(t, "int"), strings.HasPrefix(t, "bigint"):
		return kindInt
	case strings.HasPrefix(t, "float"), strings.HasPrefix(t, "double"), strings.HasPrefix(t, "real"):
		return kindFloat
	}
	return ""
}

// allColumns configured columns, primary key first
func (c *Config) allColumns() []string {
	cols := []string{c.PrimaryKeyColumnName}
	for name := range c.ColumnConfig {
		if name != c.PrimaryKeyColumnName {
			cols = append(cols, name)
		}
	}
	return cols
}
