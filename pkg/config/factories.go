package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/pkg/capture"
)

// CreateCaptureStore creates the exchange store selected by cfg.Type.
func CreateCaptureStore(ctx context.Context, cfg *CaptureConfig) (capture.Store, error) {
	switch cfg.Type {
	case "memory":
		return capture.NewMemoryStore(), nil
	case "badger":
		return createBadgerCaptureStore(ctx, cfg.Badger)
	case "s3":
		return createS3CaptureStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown capture store type: %q (supported: memory, badger, s3)", cfg.Type)
	}
}

func createBadgerCaptureStore(ctx context.Context, options map[string]any) (capture.Store, error) {
	var storeCfg capture.BadgerStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger capture store config: %w", err)
	}

	store, err := capture.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger capture store: %w", err)
	}

	logger.Info("BadgerDB capture store initialized", "path", storeCfg.DBPath, "in_memory", storeCfg.InMemory)
	return store, nil
}

// s3StoreOptions are the keys accepted under capture.s3.
type s3StoreOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

func decodeS3Options(options map[string]any) (*s3StoreOptions, error) {
	var opts s3StoreOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode S3 capture store config: %w", err)
	}

	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 capture store: bucket is required")
	}
	if opts.Region == "" {
		return nil, fmt.Errorf("S3 capture store: region is required")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 10
	}
	return &opts, nil
}

func createS3CaptureStore(ctx context.Context, options map[string]any) (capture.Store, error) {
	storeCfg, err := decodeS3Options(options)
	if err != nil {
		return nil, err
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for S3 compatible services (MinIO, Ceph, ...)
	if storeCfg.Endpoint != "" {
		//nolint:staticcheck
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck
				return aws.Endpoint{
					URL:               storeCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	store, err := capture.NewS3Store(ctx, capture.S3StoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 capture store: %w", err)
	}

	logger.Info("S3 capture store initialized",
		"bucket", storeCfg.Bucket,
		"region", storeCfg.Region,
		"prefix", storeCfg.KeyPrefix)

	return store, nil
}
