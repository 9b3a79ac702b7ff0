package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
)

// fakeS3 records PutObject calls and returns scripted errors.
type fakeS3 struct {
	putErr     error
	putErrOnce bool
	headErr    error

	putCalls  []s3.PutObjectInput
	putBodies [][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCalls = append(f.putCalls, *params)

	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.putBodies = append(f.putBodies, body)

	if f.putErr != nil {
		err := f.putErr
		if f.putErrOnce {
			f.putErr = nil
		}
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storeRetrier(maxAttempts int) *pkgerrors.Retrier {
	return pkgerrors.NewRetrier(config.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: "1ms",
		MaxDelay:     "5ms",
	}, testLogger())
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api_trades_2023-11-14.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStaticCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a complete key pair", func(t *testing.T) {
		creds := NewStaticCredentials("AKIATEST", "secret")

		keys, err := creds.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AKIATEST", keys.AccessKeyID)
		assert.Equal(t, "secret", keys.SecretAccessKey)
	})

	t.Run("missing keys are an auth error", func(t *testing.T) {
		creds := NewStaticCredentials("", "")

		_, err := creds.Resolve(ctx)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeAuth, pkgerrors.GetErrorType(err))
	})

	t.Run("builds from storage config", func(t *testing.T) {
		cfg := config.StorageConfig{AccessKeyID: "AKIATEST", SecretAccessKey: "secret"}

		keys, err := CredentialsFromConfig(cfg).Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "AKIATEST", keys.AccessKeyID)
	})
}

func TestNewS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("fails fast on unresolvable credentials", func(t *testing.T) {
		cfg := config.StorageConfig{Bucket: "bucket", Region: "us-east-1"}

		_, err := NewS3Store(ctx, cfg, CredentialsFromConfig(cfg), nil, testLogger())
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeAuth, pkgerrors.GetErrorType(err))
	})

	t.Run("builds a client with resolved credentials", func(t *testing.T) {
		cfg := config.StorageConfig{
			Bucket:          "bucket",
			KeyPrefix:       "trades",
			Region:          "us-east-1",
			AccessKeyID:     "AKIATEST",
			SecretAccessKey: "secret",
		}

		store, err := NewS3Store(ctx, cfg, CredentialsFromConfig(cfg), nil, testLogger())
		require.NoError(t, err)
		assert.Equal(t, "trades/api_trades_2023-11-14.csv", store.ObjectKey("/tmp/api_trades_2023-11-14.csv"))
	})
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("puts the file under prefix/filename", func(t *testing.T) {
		fake := &fakeS3{}
		store := NewS3StoreWithClient(fake, "mercadobitcoin-api", "trades", nil, testLogger())

		path := writeArtifact(t, "tid,date,type,price,amount\n1,1700000000,buy,100.0,0.5\n")

		key, err := store.Upload(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "trades/api_trades_2023-11-14.csv", key)

		require.Len(t, fake.putCalls, 1)
		call := fake.putCalls[0]
		assert.Equal(t, "mercadobitcoin-api", *call.Bucket)
		assert.Equal(t, "trades/api_trades_2023-11-14.csv", *call.Key)
		assert.Equal(t, "text/csv", *call.ContentType)
		assert.Contains(t, string(fake.putBodies[0]), "1700000000")
	})

	t.Run("unreadable local file is an io error with no put", func(t *testing.T) {
		fake := &fakeS3{}
		store := NewS3StoreWithClient(fake, "bucket", "trades", nil, testLogger())

		_, err := store.Upload(ctx, filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeIO, pkgerrors.GetErrorType(err))
		assert.Empty(t, fake.putCalls)
	})

	t.Run("access denied is an auth error and leaves the artifact untouched", func(t *testing.T) {
		fake := &fakeS3{putErr: &smithy.GenericAPIError{
			Code:    "AccessDenied",
			Message: "Access Denied",
			Fault:   smithy.FaultClient,
		}}
		store := NewS3StoreWithClient(fake, "bucket", "trades", storeRetrier(3), testLogger())

		content := "tid,date,type,price,amount\n1,1700000000,buy,100.0,0.5\n"
		path := writeArtifact(t, content)

		_, err := store.Upload(ctx, path)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeAuth, pkgerrors.GetErrorType(err))

		// Auth failures are permanent: exactly one attempt.
		assert.Len(t, fake.putCalls, 1)

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, content, string(data))
	})

	t.Run("server faults are retried with the full body each attempt", func(t *testing.T) {
		fake := &fakeS3{
			putErr: &smithy.GenericAPIError{
				Code:    "InternalError",
				Message: "We encountered an internal error",
				Fault:   smithy.FaultServer,
			},
			putErrOnce: true,
		}
		store := NewS3StoreWithClient(fake, "bucket", "trades", storeRetrier(3), testLogger())

		content := "tid,date,type,price,amount\n1,1700000000,buy,100.0,0.5\n"
		path := writeArtifact(t, content)

		key, err := store.Upload(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "trades/api_trades_2023-11-14.csv", key)

		require.Len(t, fake.putBodies, 2)
		assert.Equal(t, content, string(fake.putBodies[0]))
		assert.Equal(t, content, string(fake.putBodies[1]))
	})

	t.Run("unknown client faults are not retried", func(t *testing.T) {
		fake := &fakeS3{putErr: &smithy.GenericAPIError{
			Code:    "NoSuchBucket",
			Message: "The specified bucket does not exist",
			Fault:   smithy.FaultClient,
		}}
		store := NewS3StoreWithClient(fake, "bucket", "trades", storeRetrier(3), testLogger())

		path := writeArtifact(t, "tid,date,type,price,amount\n")

		_, err := store.Upload(ctx, path)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeBadRequest, pkgerrors.GetErrorType(err))
		assert.Len(t, fake.putCalls, 1)
	})

	t.Run("transport failures are classified as network", func(t *testing.T) {
		fake := &fakeS3{putErr: errors.New("dial tcp: connection refused")}
		store := NewS3StoreWithClient(fake, "bucket", "trades", nil, testLogger())

		path := writeArtifact(t, "tid,date,type,price,amount\n")

		_, err := store.Upload(ctx, path)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeNetwork, pkgerrors.GetErrorType(err))
	})
}

func TestStoreHealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("passes when the bucket answers", func(t *testing.T) {
		store := NewS3StoreWithClient(&fakeS3{}, "bucket", "trades", nil, testLogger())
		assert.NoError(t, store.HealthCheck(ctx))
	})

	t.Run("classifies head failures", func(t *testing.T) {
		fake := &fakeS3{headErr: &smithy.GenericAPIError{
			Code:  "AccessDenied",
			Fault: smithy.FaultClient,
		}}
		store := NewS3StoreWithClient(fake, "bucket", "trades", nil, testLogger())

		err := store.HealthCheck(ctx)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.ErrorTypeAuth, pkgerrors.GetErrorType(err))
	})
}
