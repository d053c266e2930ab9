package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"taskboard/internal/config"
	"taskboard/internal/kv"
	"taskboard/internal/kv/memory"
	"taskboard/internal/kv/postgres"
	"taskboard/internal/kv/redis"
	kvs3 "taskboard/internal/kv/s3"
	"taskboard/internal/kv/sqlite"
)

func buildBackend(ctx context.Context, cfg config.Config, logger *logrus.Logger) (kv.Backend, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil

	case "sqlite":
		db, err := sqlite.Open(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, err
		}
		backend := sqlite.New(db)
		if err := backend.Init(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
		logger.Infof("using sqlite store at %s", cfg.Store.SQLite.Path)
		return backend, nil

	case "redis":
		backend, err := redis.Dial(ctx, redis.Config{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("using redis store at %s (db %d)", cfg.Store.Redis.Addr, cfg.Store.Redis.DB)
		return backend, nil

	case "postgres":
		if cfg.Store.Postgres.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is required")
		}
		backend, err := postgres.Connect(ctx, cfg.Store.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if err := backend.Init(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
		logger.Info("using postgres store")
		return backend, nil

	case "s3":
		return buildS3Backend(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func buildS3Backend(ctx context.Context, cfg config.Config, logger *logrus.Logger) (kv.Backend, error) {
	if cfg.Store.S3.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Store.S3.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Store.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Store.S3.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Store.S3.Bucket, cfg.Store.S3.Region)
	backend, err := kvs3.New(client, kvs3.Options{
		Bucket:    cfg.Store.S3.Bucket,
		KeyPrefix: cfg.Store.S3.Prefix,
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}
