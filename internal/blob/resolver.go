// Package blob turns stored blob ids into fetchable URLs.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultAvatarID is the sentinel id written when a member removes their avatar.
const DefaultAvatarID = "default-avatar"

// Resolver maps a storage id to a URL. An empty id resolves to "" without error.
type Resolver interface {
	URL(ctx context.Context, storageID string) (string, error)
}

type Options struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	Bucket           string
	Region           string
	UseSSL           bool
	PresignTTL       time.Duration
	DefaultAvatarURL string
}

// MinioResolver presigns GET URLs against an S3-compatible bucket.
type MinioResolver struct {
	client        *minio.Client
	bucket        string
	ttl           time.Duration
	defaultAvatar string
}

// NewMinioResolver builds a resolver. Setting a region keeps presigning local:
// minio-go only asks the server for the bucket location when it is unknown.
func NewMinioResolver(opts Options) (*MinioResolver, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MinioResolver{
		client:        client,
		bucket:        opts.Bucket,
		ttl:           ttl,
		defaultAvatar: opts.DefaultAvatarURL,
	}, nil
}

func (r *MinioResolver) URL(ctx context.Context, storageID string) (string, error) {
	switch storageID {
	case "":
		return "", nil
	case DefaultAvatarID:
		return r.defaultAvatar, nil
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, storageID, r.ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", storageID, err)
	}
	return u.String(), nil
}

// StaticResolver serves blobs from a fixed base URL. It backs local development
// when no object store is configured.
type StaticResolver struct {
	BaseURL          string
	DefaultAvatarURL string
}

func (r StaticResolver) URL(_ context.Context, storageID string) (string, error) {
	switch storageID {
	case "":
		return "", nil
	case DefaultAvatarID:
		return r.DefaultAvatarURL, nil
	}
	if r.BaseURL == "" {
		return "", nil
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + url.PathEscape(storageID), nil
}
