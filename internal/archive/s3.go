// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader pushes completed trace files to S3. Construction is cheap;
// a nil *Uploader (returned when archiving is disabled) makes Upload
// a no-op so callers don't need a separate enabled check.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewUploader loads AWS credentials from the default chain (env,
// shared config, EC2/ECS role) for the given region.
func NewUploader(ctx context.Context, region, bucket, prefix string) (*Uploader, error) {
	if bucket == "" {
		return nil, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("archive: loading AWS config: %w", err)
	}
	return &Uploader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Upload streams the file at path to s3://bucket/prefix/<basename>.
// A nil receiver (archiving disabled) is a no-op.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	if u == nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: opening trace for upload: %w", err)
	}
	defer f.Close()

	key := filepath.Join(u.prefix, filepath.Base(path))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("archive: uploading %s: %w", path, err)
	}
	return nil
}
