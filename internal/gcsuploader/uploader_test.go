package gcsuploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://trips/2024/bachelor.csv", "trips", "2024/bachelor.csv", false},
		{"gs://trips/ledger.csv", "trips", "ledger.csv", false},
		{"gs://trips", "", "", true},
		{"gs://trips/", "", "", true},
		{"s3://trips/ledger.csv", "", "", true},
		{"ledger.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	assert.Equal(t, "ledger.csv", ExtractFilenameFromGCSURI("gs://trips/2024/ledger.csv"))
	assert.Equal(t, "trips", ExtractFilenameFromGCSURI("gs://trips"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", ContentTypeFor("ledger.CSV"))
	assert.Equal(t, "application/pdf", ContentTypeFor("/tmp/receipts.pdf"))
	assert.Equal(t, "image/png", ContentTypeFor("receipt.png"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("ledger"))
}
