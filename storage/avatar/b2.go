// Package avatar stores student avatars in a Backblaze B2 bucket.
package avatar

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var ErrNotConfigured = errors.New("b2 storage is not configured")

type B2Store struct {
	client *b2.Client
	bucket *b2.Bucket
}

// Open connects to the bucket named in conf.
func Open(ctx context.Context, conf core.StorageConfig) (*B2Store, error) {
	if conf.B2KeyID == "" || conf.B2AppKey == "" || conf.B2Bucket == "" {
		return nil, ErrNotConfigured
	}
	client, err := b2.NewClient(ctx, conf.B2KeyID, conf.B2AppKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, conf.B2Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "getting bucket")
	}
	return &B2Store{client: client, bucket: bucket}, nil
}

// Upload writes r under key and returns the public download URL of the object.
func (s *B2Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", errors.New("empty object key")
	}
	w := s.bucket.Object(key).NewWriter(ctx).WithAttrs(&b2.Attrs{ContentType: contentType})
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing writer")
	}
	return PublicURL(s.bucket.BaseURL(), s.bucket.Name(), key), nil
}

// PublicURL builds the friendly download URL of key.
func PublicURL(baseURL, bucket, key string) string {
	return fmt.Sprintf("%s/file/%s/%s", strings.TrimSuffix(baseURL, "/"), bucket, strings.TrimPrefix(key, "/"))
}
