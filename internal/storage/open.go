package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/eternalApril/phonebook/internal/config"
)

// Open builds the backend selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := OpenSQLStorage(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		s, err := NewShardedMapStorage(cfg.Memory.Shards)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s, err := NewRedisStorage(ctx, client, cfg.Redis.Key)
		if err != nil {
			client.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil

	case config.DriverDynamoDB:
		client, err := newDynamoClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		s, err := NewDynamoStorage(ctx, client, cfg.DynamoDB.Table)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}

func newDynamoClient(ctx context.Context, cfg config.DynamoDBConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
