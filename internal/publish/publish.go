// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish uploads rendered report files to an S3-compatible bucket.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// ErrDisabled is returned by New when no endpoint is configured.
var ErrDisabled = errors.New("publishing disabled: no endpoint configured")

// putFunc stores one object. Swapped in tests.
type putFunc func(ctx context.Context, key string, f *os.File, size int64, contentType string) (minio.UploadInfo, error)

// Object describes one uploaded file.
type Object struct {
	Key  string `json:"key" yaml:"key"`
	Size int64  `json:"size" yaml:"size"`
	ETag string `json:"etag,omitempty" yaml:"etag,omitempty"`
}

// Publisher uploads files under <prefix>/<run id>/ in one bucket.
type Publisher struct {
	put    putFunc
	bucket string
	prefix string
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg types.PublishConfig) (*Publisher, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrDisabled
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish bucket not set")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	p := newPublisher(cfg.Bucket, cfg.Prefix)
	p.put = func(ctx context.Context, key string, f *os.File, size int64, contentType string) (minio.UploadInfo, error) {
		return client.PutObject(ctx, cfg.Bucket, key, f, size, minio.PutObjectOptions{ContentType: contentType})
	}
	return p, nil
}

func newPublisher(bucket, prefix string) *Publisher {
	return &Publisher{bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a file in a run.
func (p *Publisher) Key(runID, file string) string {
	parts := []string{runID, filepath.Base(file)}
	if p.prefix != "" {
		parts = append([]string{p.prefix}, parts...)
	}
	return path.Join(parts...)
}

// Publish uploads each file and returns the stored objects. It stops at the
// first failure.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]Object, error) {
	var objects []Object
	for _, file := range files {
		obj, err := p.upload(ctx, runID, file)
		if err != nil {
			return objects, err
		}
		slog.Debug("published", "bucket", p.bucket, "key", obj.Key, "size", obj.Size)
		objects = append(objects, obj)
	}
	return objects, nil
}

func (p *Publisher) upload(ctx context.Context, runID, file string) (Object, error) {
	f, err := os.Open(file)
	if err != nil {
		return Object{}, fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat %s: %w", file, err)
	}

	key := p.Key(runID, file)
	up, err := p.put(ctx, key, f, info.Size(), ContentType(file))
	if err != nil {
		return Object{}, fmt.Errorf("uploading %s: %w", key, err)
	}
	return Object{Key: key, Size: info.Size(), ETag: up.ETag}, nil
}

// ContentType maps a rendered file to its MIME type.
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
