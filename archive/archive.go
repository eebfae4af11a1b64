// Package archive uploads finished run directories to S3.
//
// Information Hiding:
// - AWS credential and region resolution
// - Object key layout under the bucket prefix
// - Multipart upload handling (delegated to the upload manager)
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Uploader is the subset of the S3 upload manager the archiver needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archiver copies run directories to a bucket.
type Archiver struct {
	uploader Uploader
	logger   *zap.Logger
}

// New creates an archiver over an existing uploader.
func New(uploader Uploader, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{uploader: uploader, logger: logger.Named("archive")}
}

// NewS3 resolves AWS credentials the standard way (environment, shared
// config, instance role) and returns an archiver backed by the S3 upload
// manager. An empty region defers to that resolution.
func NewS3(ctx context.Context, region string, logger *zap.Logger) (*Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(manager.NewUploader(s3.NewFromConfig(cfg)), logger), nil
}

// Key returns the object key of file rel inside runDir:
// prefix/<run-dir-name>/<rel>.
func Key(prefix, runDir, rel string) string {
	return path.Join(prefix, filepath.Base(filepath.Clean(runDir)), filepath.ToSlash(rel))
}

// Upload copies every regular file under runDir to bucket and returns how
// many were uploaded. It stops at the first failure.
func (a *Archiver) Upload(ctx context.Context, runDir, bucket, prefix string) (int, error) {
	if bucket == "" {
		return 0, errors.New("archive: bucket is required")
	}
	info, err := os.Stat(runDir)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("archive: %s is not a directory", runDir)
	}

	count := 0
	err = filepath.WalkDir(runDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(runDir, p)
		if err != nil {
			return err
		}
		key := Key(prefix, runDir, rel)
		if err := a.put(ctx, bucket, key, p); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
		count++
		a.logger.Debug("uploaded", zap.String("bucket", bucket), zap.String("key", key))
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("archive: %w", err)
	}

	a.logger.Info("run archived",
		zap.String("run_dir", runDir),
		zap.String("bucket", bucket),
		zap.Int("files", count))
	return count, nil
}

func (a *Archiver) put(ctx context.Context, bucket, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	_, err = a.uploader.Upload(ctx, input)
	return err
}
