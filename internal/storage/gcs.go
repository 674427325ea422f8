package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"
)

// GCSObjectStore is an ObjectStore on a Google Cloud Storage bucket. Objects
// are written with the publicRead predefined ACL.
type GCSObjectStore struct {
	bucket string
	svc    *storagev1.Service
}

// NewGCSObjectStore authenticates with the service-account JSON in
// credentialsFile, or with application default credentials when it is empty.
func NewGCSObjectStore(ctx context.Context, bucket, credentialsFile string) (*GCSObjectStore, error) {
	var ts oauth2.TokenSource
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, storagev1.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("parse gcs credentials: %w", err)
		}
		ts = creds.TokenSource
	} else {
		var err error
		ts, err = google.DefaultTokenSource(ctx, storagev1.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("gcs default credentials: %w", err)
		}
	}

	svc, err := storagev1.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSObjectStore{bucket: bucket, svc: svc}, nil
}

func (g *GCSObjectStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error {
	obj := &storagev1.Object{
		Name:         key,
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	_, err := g.svc.Objects.Insert(g.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		PredefinedAcl("publicRead").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	return nil
}

func (g *GCSObjectStore) Delete(ctx context.Context, key string) error {
	if err := g.svc.Objects.Delete(g.bucket, key).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (g *GCSObjectStore) Size(ctx context.Context, key string) (int64, error) {
	obj, err := g.svc.Objects.Get(g.bucket, key).Fields("size").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return int64(obj.Size), nil
}
