package datastore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	redisTimeout    = 5 * time.Second
	redisMaxRetries = 5
	redisScanCount  = 200
)

// RedisDatastore one hash per row, keyed "table:pk"
type RedisDatastore struct {
	client *redis.Client
	config *Config
}

func NewRedisDatastore(cfg *Config, conf *config.Config) (*RedisDatastore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.DBName,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.DBName, err)
	}
	return &RedisDatastore{client: client, config: cfg}, nil
}

func (r *RedisDatastore) rowKey(key string) string {
	return r.config.TableName + ":" + key
}

func (r *RedisDatastore) Close() error {
	return r.client.Close()
}

// fields split values into hset pairs and null columns
func fields(values map[string]interface{}) ([]interface{}, []string) {
	pairs := make([]interface{}, 0, len(values)*2)
	var nulls []string
	for column, value := range values {
		if value == nil {
			nulls = append(nulls, column)
			continue
		}
		pairs = append(pairs, column, value)
	}
	return pairs, nulls
}

func (r *RedisDatastore) Put(key string, values map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	pairs, _ := fields(values)
	pairs = append(pairs, r.config.PrimaryKeyColumnName, key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.rowKey(key))
		pipe.HSet(ctx, r.rowKey(key), pairs...)
		return nil
	})
	return err
}

func (r *RedisDatastore) Update(key string, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	rowKey := r.rowKey(key)
	pairs, nulls := fields(values)
	update := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, rowKey).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotExist
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(pairs) > 0 {
				pipe.HSet(ctx, rowKey, pairs...)
			}
			if len(nulls) > 0 {
				pipe.HDel(ctx, rowKey, nulls...)
			}
			return nil
		})
		return err
	}
	for i := 0; i < redisMaxRetries; i++ {
		err := r.client.Watch(ctx, update, rowKey)
		if errors.Is(err, redis.TxFailedErr) {
			logrus.Debugf("redis update %s conflict, retry", rowKey)
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: too many conflicts", rowKey)
}

func (r *RedisDatastore) Get(key string, columns []string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	raw, err := r.client.HGetAll(ctx, r.rowKey(key)).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return r.convert(raw, columns)
}

// convert hash strings back to the configured column types
func (r *RedisDatastore) convert(raw map[string]string, columns []string) (map[string]interface{}, error) {
	if len(columns) == 0 {
		columns = r.config.allColumns()
	}
	result := make(map[string]interface{}, len(columns))
	for _, column := range columns {
		s, ok := raw[column]
		if !ok {
			continue
		}
		switch columnKind(r.config.ColumnConfig[column]) {
		case kindText:
			result[column] = s
		case kindInt:
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", column, err)
			}
			result[column] = v
		case kindFloat:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", column, err)
			}
			result[column] = v
		default:
			return nil, fmt.Errorf("unsupported column %s type: %s", column, r.config.ColumnConfig[column])
		}
	}
	return result, nil
}

func (r *RedisDatastore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return r.client.Del(ctx, r.rowKey(key)).Err()
}

func (r *RedisDatastore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	ctx := context.Background()
	if len(columns) > 0 {
		columns = append([]string{r.config.PrimaryKeyColumnName}, columns...)
	}
	prefix := r.config.TableName + ":"
	results := make(map[string]map[string]interface{})
	iter := r.client.Scan(ctx, 0, prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		rowKey := iter.Val()
		raw, err := r.client.HGetAll(ctx, rowKey).Result()
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			// deleted between scan and read
			continue
		}
		m, err := r.convert(raw, columns)
		if err != nil {
			return nil, err
		}
		results[strings.TrimPrefix(rowKey, prefix)] = m
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
