package datastore

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresDatastore column names are upper case, so every identifier is quoted
type PostgresDatastore struct {
	db     *gorm.DB
	config *Config
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func postgresType(typ string) string {
	switch columnKind(typ) {
	case kindInt:
		return "BIGINT"
	case kindFloat:
		return "DOUBLE PRECISION"
	}
	return "TEXT"
}

func NewPostgresDatastore(cfg *Config) (*PostgresDatastore, error) {
	level := logger.Warn
	if logrus.GetLevel() >= logrus.DebugLevel {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DBName), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	columnDefs := make([]string, 0, len(cfg.ColumnConfig))
	for _, name := range cfg.allColumns() {
		def := quote(name) + " " + postgresType(cfg.ColumnConfig[name])
		if name == cfg.PrimaryKeyColumnName {
			def += " PRIMARY KEY NOT NULL"
		}
		columnDefs = append(columnDefs, def)
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		quote(cfg.TableName), strings.Join(columnDefs, ", "))
	if err := db.Exec(query).Error; err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", cfg.TableName, err)
	}
	return &PostgresDatastore{db: db, config: cfg}, nil
}

func (p *PostgresDatastore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresDatastore) table() *gorm.DB {
	return p.db.Table(p.config.TableName)
}

func (p *PostgresDatastore) byKey(key string) *gorm.DB {
	return p.table().Where(quote(p.config.PrimaryKeyColumnName)+" = ?", key)
}

func quoteAll(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quote(column)
	}
	return quoted
}

// normalize driver values to string, int64 and float64, drop nulls
func (p *PostgresDatastore) normalize(row map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(row))
	for column, value := range row {
		switch v := value.(type) {
		case nil:
		case []byte:
			result[column] = string(v)
		case int32:
			result[column] = int64(v)
		case int:
			result[column] = int64(v)
		case float32:
			result[column] = float64(v)
		default:
			result[column] = v
		}
	}
	return result
}

func (p *PostgresDatastore) Get(key string, columns []string) (map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := p.byKey(key).Select(quoteAll(columns)).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return p.normalize(rows[0]), nil
}

func (p *PostgresDatastore) Put(key string, values map[string]interface{}) error {
	row := make(map[string]interface{}, len(values)+1)
	for column, value := range values {
		row[column] = value
	}
	row[p.config.PrimaryKeyColumnName] = key
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
			quote(p.config.TableName), quote(p.config.PrimaryKeyColumnName)), key).Error; err != nil {
			return err
		}
		return tx.Table(p.config.TableName).Create(row).Error
	})
}

func (p *PostgresDatastore) Update(key string, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	res := p.byKey(key).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotExist
	}
	return nil
}

func (p *PostgresDatastore) Delete(key string) error {
	return p.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		quote(p.config.TableName), quote(p.config.PrimaryKeyColumnName)), key).Error
}

func (p *PostgresDatastore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	selected := []string{p.config.PrimaryKeyColumnName}
	if len(columns) == 0 {
		selected = p.config.allColumns()
	} else {
		for _, column := range columns {
			if column != p.config.PrimaryKeyColumnName {
				selected = append(selected, column)
			}
		}
	}
	var rows []map[string]interface{}
	if err := p.table().Select(quoteAll(selected)).Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		m := p.normalize(row)
		key, _ := m[p.config.PrimaryKeyColumnName].(string)
		results[key] = m
	}
	return results, nil
}
