// Package s3store keeps cloud library documents as JSON objects in an
// S3-compatible bucket (AWS S3, Cloudflare R2, MinIO).
//
// The writing device's id travels in object metadata and the object's
// LastModified is the server timestamp. S3 has no push notifications, so
// Subscribe polls HeadObject and fetches the object when its ETag changes.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"orbit/internal/cloudsync"
	"orbit/internal/logging"
)

const deviceMetadataKey = "device-id"

// API is the subset of the S3 client the store uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Options configures a bucket connection.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PollInterval    time.Duration
}

// Store is a cloudsync.DocumentStore over one bucket.
type Store struct {
	api    API
	bucket string
	poll   time.Duration
	logger *slog.Logger
}

var _ cloudsync.DocumentStore = (*Store)(nil)

// New connects to the bucket described by opts. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("s3 bucket required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region := strings.TrimSpace(opts.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithAPI(client, opts.Bucket, opts.PollInterval, logger), nil
}

// NewWithAPI builds a store over an existing client.
func NewWithAPI(api API, bucket string, poll time.Duration, logger *slog.Logger) *Store {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Store{
		api:    api,
		bucket: bucket,
		poll:   poll,
		logger: logging.NewComponentLogger(logger, "s3store"),
	}
}

func objectKey(path string) string {
	return strings.Trim(path, "/") + ".json"
}

// Get reads the document at path. A missing object returns nil, nil.
func (s *Store) Get(ctx context.Context, path string) (*cloudsync.Document, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get object %s: %w", objectKey(path), err)
	}
	defer out.Body.Close()

	var doc cloudsync.Document
	if err := json.NewDecoder(out.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", objectKey(path), err)
	}
	if id := out.Metadata[deviceMetadataKey]; id != "" {
		doc.DeviceID = id
	}
	if out.LastModified != nil {
		doc.UpdatedAt = out.LastModified.UTC()
	}
	return &doc, nil
}

// Set writes doc to path. UpdatedAt is left to the server.
func (s *Store) Set(ctx context.Context, path string, doc cloudsync.Document) error {
	doc.UpdatedAt = time.Time{}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(path)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{deviceMetadataKey: doc.DeviceID},
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", objectKey(path), err)
	}
	return nil
}

// Subscribe polls path and calls fn whenever the object's ETag changes. The
// object present when Subscribe starts is not delivered unless the first
// poll failed. Poll errors are logged and never end the subscription.
func (s *Store) Subscribe(ctx context.Context, path string, fn func(cloudsync.Document)) error {
	lastETag, err := s.etag(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.warnPoll(err)
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		etag, err := s.etag(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.warnPoll(err)
			continue
		}
		if etag == lastETag || etag == "" {
			continue
		}
		doc, err := s.Get(ctx, path)
		if err != nil {
			s.logger.Warn("fetch changed document failed",
				logging.String(logging.FieldEventType, "s3_fetch_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check bucket access"),
				logging.String(logging.FieldImpact, "remote change retried on next poll"))
			continue
		}
		lastETag = etag
		if doc != nil {
			fn(*doc)
		}
	}
}

func (s *Store) warnPoll(err error) {
	s.logger.Warn("poll failed",
		logging.String(logging.FieldEventType, "s3_poll_failed"),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check bucket access"),
		logging.String(logging.FieldImpact, "remote changes picked up on a later poll"))
}

func (s *Store) etag(ctx context.Context, path string) (string, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("head object %s: %w", objectKey(path), err)
	}
	return aws.ToString(out.ETag), nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
