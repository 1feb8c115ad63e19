package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/ivankudzin/giftexchange/internal/services/assignments"
)

// ObjectStore is the subset of *minio.Client the archive writes through.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archive keeps every committed run report as a JSON object, one object per
// run, so past runs stay inspectable after the redis status is overwritten.
type Archive struct {
	store  ObjectStore
	bucket string
	prefix string

	ensureOnce sync.Once
	ensureErr  error
}

func NewArchive(store ObjectStore, bucket, prefix string) *Archive {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "runs"
	}
	return &Archive{
		store:  store,
		bucket: strings.TrimSpace(bucket),
		prefix: prefix,
	}
}

func (a *Archive) EnsureBucket(ctx context.Context) error {
	if a.store == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if a.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	a.ensureOnce.Do(func() {
		exists, err := a.store.BucketExists(ctx, a.bucket)
		if err != nil {
			a.ensureErr = err
			return
		}
		if exists {
			return
		}
		a.ensureErr = a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	})

	if a.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", a.bucket, a.ensureErr)
	}
	return nil
}

func (a *Archive) Record(ctx context.Context, rec assignments.RunRecord) error {
	if rec.CollectionID <= 0 || strings.TrimSpace(rec.RunID) == "" || strings.TrimSpace(rec.Kind) == "" {
		return fmt.Errorf("invalid run record")
	}
	if err := a.EnsureBucket(ctx); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}

	key := a.Key(rec)
	_, err = a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"run-kind": rec.Kind,
		},
	})
	if err != nil {
		return fmt.Errorf("put run record %s: %w", key, err)
	}
	return nil
}

// Key is runs/<collection>/<kind>/<finished, RFC3339 UTC>-<run id>.json.
func (a *Archive) Key(rec assignments.RunRecord) string {
	return fmt.Sprintf("%s/%d/%s/%s-%s.json",
		a.prefix,
		rec.CollectionID,
		rec.Kind,
		rec.FinishedAt.UTC().Format("20060102T150405Z"),
		rec.RunID,
	)
}
