package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the part of *s3.Client used by S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3StoreConfig configures an S3Store.
type S3StoreConfig struct {
	// Client is the configured S3 client.
	Client S3API

	// Bucket must already exist.
	Bucket string

	// KeyPrefix is prepended to every object key, e.g. "nfsprobe/captures".
	KeyPrefix string
}

// S3Store writes one JSON object per exchange:
//
//	<prefix>/<run id>/<seq, 10 digits>.json
type S3Store struct {
	client    S3API
	bucket    string
	keyPrefix string
}

// NewS3Store returns a store writing to cfg.Bucket.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &S3Store{client: cfg.Client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *S3Store) runPrefix(runID string) string {
	return path.Join(s.keyPrefix, runID) + "/"
}

func (s *S3Store) objectKey(runID string, seq uint64) string {
	return s.runPrefix(runID) + seqKey(seq) + ".json"
}

func (s *S3Store) Append(ctx context.Context, x Exchange) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(x)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(x.RunID, x.Seq)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put exchange to S3: %w", err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, runID string) ([]Exchange, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.runPrefix(runID)),
	})
	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	sort.Strings(keys)

	out := make([]Exchange, 0, len(keys))
	for _, key := range keys {
		x, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

func (s *S3Store) get(ctx context.Context, key string) (Exchange, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Exchange{}, fmt.Errorf("failed to get object %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return Exchange{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	var x Exchange
	if err := json.Unmarshal(body, &x); err != nil {
		return Exchange{}, fmt.Errorf("failed to decode exchange %s: %w", key, err)
	}
	return x, nil
}

// Close is a no-op; the S3 client holds no per-store resources.
func (s *S3Store) Close() error {
	return nil
}
