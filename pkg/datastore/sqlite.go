package datastore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteDatastore struct {
	db     *sql.DB
	config *Config
}

func NewSQLiteDatastore(config *Config) (*SQLiteDatastore, error) {
	db, err := sql.Open("sqlite3", config.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer, and ":memory:" is private to one connection
	db.SetMaxOpenConns(1)

	// Create table if it doesn't exist.
	columnDefs := make([]string, 0, len(config.ColumnConfig))
	for name, typ := range config.ColumnConfig {
		columnDefs = append(columnDefs, fmt.Sprintf("%s %s", name, typ))
	}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		config.TableName,
		strings.Join(columnDefs, ", "),
	)
	if _, err = db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", config.TableName, err)
	}
	return &SQLiteDatastore{
		db:     db,
		config: config,
	}, nil
}

func (ds *SQLiteDatastore) Close() error {
	return ds.db.Close()
}

// scan holders typed by the column config
func (ds *SQLiteDatastore) holders(columns []string) ([]interface{}, error) {
	values := make([]interface{}, len(columns))
	for i, column := range columns {
		switch columnKind(ds.config.ColumnConfig[column]) {
		case kindText:
			values[i] = new(sql.NullString)
		case kindInt:
			values[i] = new(sql.NullInt64)
		case kindFloat:
			values[i] = new(sql.NullFloat64)
		default:
			// If the column type is not supported, we return an error.
			return nil, fmt.Errorf("unsupported column %s type: %s", column, ds.config.ColumnConfig[column])
		}
	}
	return values, nil
}

func fromHolders(columns []string, values []interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(columns))
	for i, column := range columns {
		switch v := values[i].(type) {
		case *sql.NullString:
			if v.Valid {
				result[column] = v.String
			}
		case *sql.NullInt64:
			if v.Valid {
				result[column] = v.Int64
			}
		case *sql.NullFloat64:
			if v.Valid {
				result[column] = v.Float64
			}
		}
	}
	return result
}

func (ds *SQLiteDatastore) Get(key string, columns []string) (map[string]interface{}, error) {
	values, err := ds.holders(columns)
	if err != nil {
		return nil, err
	}
	row := ds.db.QueryRow(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
			strings.Join(columns, ", "), ds.config.TableName, ds.config.PrimaryKeyColumnName),
		key,
	)
	if err := row.Scan(values...); err != nil {
		if err == sql.ErrNoRows {
			// There is no row with the given key.
			return nil, nil
		}
		return nil, err
	}
	return fromHolders(columns, values), nil
}

func (ds *SQLiteDatastore) Put(key string, values map[string]interface{}) error {
	columns := []string{ds.config.PrimaryKeyColumnName}
	placeholders := []string{"?"}
	args := []interface{}{key}
	for column, value := range values {
		if column == ds.config.PrimaryKeyColumnName {
			continue
		}
		columns = append(columns, column)
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}
	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		ds.config.TableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	_, err := ds.db.Exec(query, args...)
	return err
}

func (ds *SQLiteDatastore) Update(key string, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	sets := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values)+1)
	for column, value := range values {
		sets = append(sets, fmt.Sprintf("%s = ?", column))
		args = append(args, value)
	}
	args = append(args, key)
	res, err := ds.db.Exec(
		fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			ds.config.TableName, strings.Join(sets, ", "), ds.config.PrimaryKeyColumnName),
		args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotExist
	}
	return nil
}

func (ds *SQLiteDatastore) Delete(key string) error {
	_, err := ds.db.Exec(
		fmt.Sprintf(
			"DELETE FROM %s WHERE %s = ?", ds.config.TableName, ds.config.PrimaryKeyColumnName),
		key)
	return err
}

func (ds *SQLiteDatastore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	// primary key always first so the row can be keyed
	selected := []string{ds.config.PrimaryKeyColumnName}
	if len(columns) == 0 {
		selected = ds.config.allColumns()
	} else {
		for _, column := range columns {
			if column != ds.config.PrimaryKeyColumnName {
				selected = append(selected, column)
			}
		}
	}
	rows, err := ds.db.Query(fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(selected, ", "), ds.config.TableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]map[string]interface{})
	for rows.Next() {
		values, err := ds.holders(selected)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		m := fromHolders(selected, values)
		key, _ := m[ds.config.PrimaryKeyColumnName].(string)
		results[key] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
