package datastore

import (
	"path/filepath"
	"testing"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(tableName string) *Config {
	primaryKeyColumnName := "primaryKey"
	return &Config{
		DBName:    ":memory:", // the memory database for testing purposes
		TableName: tableName,
		ColumnConfig: map[string]string{
			primaryKeyColumnName: "text primary key not null",
			"value":              "text",
			"intCol":             "int",
			"floatCol":           "float",
		},
		PrimaryKeyColumnName: primaryKeyColumnName,
	}
}

func TestSQLiteDatastore(t *testing.T) {
	ds, err := NewSQLiteDatastore(newTestConfig("TestSQLiteDatastore"))
	require.NoError(t, err)
	defer ds.Close()

	key := "testKey"
	value := "testValue"
	intValue := 123
	floatValue := 123.45

	// Test Put.
	err = ds.Put(key, map[string]interface{}{"value": value, "intCol": intValue, "floatCol": floatValue})
	assert.NoError(t, err)

	// Test Get.
	result, err := ds.Get(key, []string{"value", "intCol", "floatCol"})
	assert.NoError(t, err)
	assert.Equal(t, value, result["value"].(string))
	assert.Equal(t, int64(intValue), result["intCol"].(int64))
	assert.Equal(t, floatValue, result["floatCol"].(float64))

	// Test Delete.
	err = ds.Delete(key)
	assert.NoError(t, err)

	// Test that the key is indeed deleted.
	result, err = ds.Get(key, []string{"value", "intCol", "floatCol"})
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Test deleting a non-existent key.
	err = ds.Delete("non-existent key")
	assert.NoError(t, err)

	// Test Put with non-existent column.
	err = ds.Put(key, map[string]interface{}{"non_existent_column": value})
	assert.Error(t, err)

	// Test Get with non-existent column.
	_, err = ds.Get(key, []string{"non_existent_column"})
	assert.Error(t, err)

	// Test Get with non-existent key.
	_, err = ds.Get("non-existent key", []string{"value", "intCol", "floatCol"})
	assert.NoError(t, err)
}

func TestSQLiteUpdate(t *testing.T) {
	ds, err := NewSQLiteDatastore(newTestConfig("TestSQLiteUpdate"))
	require.NoError(t, err)
	defer ds.Close()

	key := "job"
	require.NoError(t, ds.Put(key, map[string]interface{}{"value": "v1", "intCol": 1}))

	// partial update leaves other columns untouched
	assert.NoError(t, ds.Update(key, map[string]interface{}{"floatCol": 2.5}))
	result, err := ds.Get(key, []string{"value", "intCol", "floatCol"})
	assert.NoError(t, err)
	assert.Equal(t, "v1", result["value"])
	assert.Equal(t, int64(1), result["intCol"])
	assert.Equal(t, 2.5, result["floatCol"])

	// null columns are left out
	require.NoError(t, ds.Put("sparse", map[string]interface{}{"value": "only"}))
	result, err = ds.Get("sparse", []string{"value", "intCol"})
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"value": "only"}, result)

	assert.ErrorIs(t, ds.Update("absent", map[string]interface{}{"value": "x"}), ErrNotExist)
}

func TestListAll(t *testing.T) {
	ds, err := NewSQLiteDatastore(newTestConfig("TestListAll"))
	require.NoError(t, err)
	defer ds.Close()

	// Insert some test data.
	testData := map[string]map[string]interface{}{
		"key1": {"value": "value1", "intCol": 1, "floatCol": 1.1},
		"key2": {"value": "value2", "intCol": 2, "floatCol": 2.2},
		"key3": {"value": "value3", "intCol": 3, "floatCol": 3.3},
	}
	for k, v := range testData {
		err := ds.Put(k, v)
		assert.NoError(t, err)
	}

	// Call ListAll and check the result.
	result, err := ds.ListAll([]string{"value", "intCol", "floatCol"})
	assert.NoError(t, err)
	assert.Equal(t, len(testData), len(result))
	for k, v := range testData {
		r, ok := result[k]
		assert.True(t, ok)
		assert.Equal(t, k, r["primaryKey"])
		assert.Equal(t, v["value"], r["value"].(string))
		assert.Equal(t, int64(v["intCol"].(int)), r["intCol"].(int64))
		assert.Equal(t, v["floatCol"].(float64), r["floatCol"].(float64))
	}

	// all configured columns when none given
	result, err = ds.ListAll(nil)
	assert.NoError(t, err)
	assert.Equal(t, "value1", result["key1"]["value"])

	// Delete all data.
	for k := range testData {
		err = ds.Delete(k)
		assert.NoError(t, err)
	}

	// Call ListAll again and check the result.
	result, err = ds.ListAll(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result))
}

func TestFactoryNewTable(t *testing.T) {
	conf := config.DefaultConfig()
	conf.DbSqlite = filepath.Join(t.TempDir(), "automl.db")
	factory := DatastoreFactory{Config: conf}

	jobs, err := factory.NewTable(SQLite, KJobTableName)
	require.NoError(t, err)
	defer jobs.Close()
	datasets, err := factory.NewTable(SQLite, KDatasetTableName)
	require.NoError(t, err)
	defer datasets.Close()

	assert.NoError(t, jobs.Put("j1", map[string]interface{}{
		KJobStatus:     "pending",
		KJobCreateTime: int64(1700000000000),
		KJobDeployed:   int64(0),
	}))
	row, err := jobs.Get("j1", []string{KJobId, KJobStatus, KJobCreateTime, KJobDeployed, KJobTags})
	assert.NoError(t, err)
	assert.Equal(t, "j1", row[KJobId])
	assert.Equal(t, "pending", row[KJobStatus])
	assert.Equal(t, int64(1700000000000), row[KJobCreateTime])
	_, hasTags := row[KJobTags]
	assert.False(t, hasTags)

	_, err = factory.NewTable(SQLite, "unknown")
	assert.Error(t, err)
	_, err = factory.NewTable(DatastoreType("mysql"), KJobTableName)
	assert.Error(t, err)

	// ots config leaves the primary key out of the attribute columns
	otsCfg := factory.NewConfig(TableStore, KJobTableName)
	_, ok := otsCfg.ColumnConfig[KJobId]
	assert.False(t, ok)
	assert.Equal(t, KJobId, otsCfg.PrimaryKeyColumnName)
}
