package artifacts

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"

	"sheaf/internal/services"
)

// GCS implements Store against a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCS opens a store over the named bucket.
func NewGCS(ctx context.Context, bucketName string) (*GCS, error) {
	if bucketName == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "new", "bucket name is required", nil)
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "artifacts", "new", "create storage client", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucketName), name: bucketName}, nil
}

// Fetch reads the full object.
func (g *GCS) Fetch(ctx context.Context, key string) ([]byte, error) {
	reader, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "artifacts", "fetch", "object "+key, err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "artifacts", "fetch", "open object "+key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "artifacts", "fetch", "read object "+key, err)
	}
	return data, nil
}

// Rename copies the object to the new key and deletes the original.
func (g *GCS) Rename(ctx context.Context, oldKey, newKey string) (RenameResult, error) {
	result := RenameResult{NewKey: newKey}
	if oldKey == newKey {
		return result, nil
	}

	src := g.bucket.Object(oldKey)
	dst := g.bucket.Object(newKey)

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			// Source gone: if the destination exists the rename already
			// happened on an earlier attempt.
			if _, attrErr := dst.Attrs(ctx); attrErr == nil {
				return result, nil
			}
			return result, services.Wrap(services.ErrNotFound, "artifacts", "rename", "object "+oldKey, err)
		}
		return result, services.Wrap(services.ErrExternalTool, "artifacts", "rename", "copy "+oldKey, err)
	}
	if err := src.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return result, services.Wrap(services.ErrExternalTool, "artifacts", "rename", "delete "+oldKey, err)
	}
	result.Renamed = true
	return result, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
