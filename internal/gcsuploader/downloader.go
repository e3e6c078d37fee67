package gcsuploader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// maxLedgerBytes caps how much of a ledger object is read into memory.
const maxLedgerBytes = 32 << 20

// DownloadFile reads a whole object from a bucket.
func DownloadFile(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	if r.Attrs.Size > maxLedgerBytes {
		return nil, fmt.Errorf("GCS object %s/%s is %d bytes, limit is %d", bucketName, objectName, r.Attrs.Size, maxLedgerBytes)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxLedgerBytes))
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	return data, nil
}
