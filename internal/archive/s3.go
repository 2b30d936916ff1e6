// Package archive uploads export payloads to object storage so downloads
// survive past the request that produced them.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/fleetrank/fleetrank/internal/export"
)

// Archiver stores one export payload and returns its object key.
type Archiver interface {
	ArchiveExport(ctx context.Context, payload export.Payload) (string, error)
}

// uploader is the slice of manager.Uploader the archiver uses.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes export blobs to S3 under:
//
//	s3://<bucket>/<prefix>/exports/YYYY/MM/DD/<uuid>.<ext>
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader uploader
	now      func() time.Time
}

// NewS3Archiver builds an archiver using the ambient AWS configuration
// (region and credentials from the environment or shared config files).
func NewS3Archiver(ctx context.Context, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
		now:      time.Now,
	}, nil
}

func (a *S3Archiver) ArchiveExport(ctx context.Context, payload export.Payload) (string, error) {
	if len(payload.Data) == 0 {
		return "", fmt.Errorf("empty payload")
	}
	ts := a.now().UTC()
	key := path.Join(
		a.prefix,
		"exports",
		fmt.Sprintf("%04d/%02d/%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s.%s", uuid.NewString(), payload.Extension),
	)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload.Data),
		ContentType: aws.String(payload.MIME),
	})
	if err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	return key, nil
}
