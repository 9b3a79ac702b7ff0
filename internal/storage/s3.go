// Package storage uploads the local CSV artifact to S3-compatible object storage.
// The uploader performs a single PutObject per run: a later run with the same
// key overwrites the earlier object, with no multipart handling and no
// post-upload integrity check.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
)

const componentName = "uploader"

const csvContentType = "text/csv"

// ObjectUploader copies a local file into object storage and reports the
// object key it was stored under.
type ObjectUploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// S3API is the slice of the S3 client the store uses. It exists so tests can
// substitute a double without a live endpoint.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store implements ObjectUploader against an S3 bucket.
type S3Store struct {
	client    S3API
	bucket    string
	keyPrefix string
	retrier   *pkgerrors.Retrier
	logger    *slog.Logger
}

// NewS3Store builds a store from the storage configuration. Credentials are
// resolved up front through the provider so a missing key pair fails the run
// before any network traffic.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, creds CredentialProvider, retrier *pkgerrors.Retrier, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	keys, err := creds.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage credentials: %w", err)
	}

	options := s3.Options{
		Region:      cfg.Region,
		Credentials: awscreds.NewStaticCredentialsProvider(keys.AccessKeyID, keys.SecretAccessKey, ""),
	}

	// Custom endpoints (minio and friends) need path-style addressing.
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
		options.UsePathStyle = true
	}

	return &S3Store{
		client:    s3.New(options),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		retrier:   retrier,
		logger:    logger,
	}, nil
}

// NewS3StoreWithClient creates a store over an existing client. Used by tests.
func NewS3StoreWithClient(client S3API, bucket, keyPrefix string, retrier *pkgerrors.Retrier, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &S3Store{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		retrier:   retrier,
		logger:    logger,
	}
}

// ObjectKey returns the destination key for a local file: the configured
// prefix joined with the file's base name.
func (s *S3Store) ObjectKey(localPath string) string {
	return path.Join(s.keyPrefix, filepath.Base(localPath))
}

// Upload implements the ObjectUploader interface. The local file is read once;
// each retry attempt re-sends the same bytes so a partially consumed body can
// never corrupt the object.
func (s *S3Store) Upload(ctx context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", pkgerrors.New(
			fmt.Errorf("failed to read %s: %w", localPath, err),
			pkgerrors.ErrorTypeIO, componentName, "upload")
	}

	key := s.ObjectKey(localPath)

	s.logger.Debug("uploading artifact",
		"local_path", localPath,
		"bucket", s.bucket,
		"key", key,
		"size_bytes", len(data))

	put := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(csvContentType),
		})
		if err != nil {
			return classifyStorageError(err)
		}
		return nil
	}

	if s.retrier != nil {
		err = s.retrier.Do(ctx, componentName, "upload", put)
	} else if err = put(); err != nil {
		err = pkgerrors.Classify(err, componentName, "upload")
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("artifact uploaded",
		"bucket", s.bucket,
		"key", key,
		"size_bytes", len(data))

	return key, nil
}

// HealthCheck verifies the bucket is reachable with the resolved credentials.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket health check failed: %w", classifyStorageError(err))
	}
	return nil
}

// authErrorCodes are the S3 error codes that indicate missing or invalid
// credentials rather than a transport or bucket problem.
var authErrorCodes = map[string]bool{
	"AccessDenied":               true,
	"InvalidAccessKeyId":         true,
	"SignatureDoesNotMatch":      true,
	"ExpiredToken":               true,
	"InvalidToken":               true,
	"CredentialsNotFound":        true,
	"MissingAuthenticationToken": true,
}

// classifyStorageError maps SDK failures onto the pipeline error taxonomy.
func classifyStorageError(err error) error {
	var se *pkgerrors.StepError
	if errors.As(err, &se) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()

		if authErrorCodes[code] {
			return pkgerrors.New(err, pkgerrors.ErrorTypeAuth, componentName, "upload")
		}

		if apiErr.ErrorFault() == smithy.FaultServer {
			return pkgerrors.New(err, pkgerrors.ErrorTypeServerError, componentName, "upload")
		}

		return pkgerrors.New(err, pkgerrors.ErrorTypeBadRequest, componentName, "upload")
	}

	// Transport-level failures (unreachable endpoint, timeouts) fall through
	// to content-based classification.
	return pkgerrors.Classify(err, componentName, "upload")
}
