package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeObjectPath(t *testing.T) {
	path, err := NormalizeObjectPath("https://bucket.s3.amazonaws.com/uploads/abc123?X-Amz-Signature=sig")
	assert.NoError(t, err)
	assert.Equal(t, "/objects/uploads/abc123", path)
}

// Path-style URL (minio): берутся последние два сегмента, имя бакета отбрасывается.
func TestNormalizeObjectPathPathStyle(t *testing.T) {
	path, err := NormalizeObjectPath("http://localhost:9000/homecare-objects/uploads/abc123")
	assert.NoError(t, err)
	assert.Equal(t, "/objects/uploads/abc123", path)
}

func TestNormalizeObjectPathTooShort(t *testing.T) {
	_, err := NormalizeObjectPath("https://example.com/single")
	assert.Error(t, err)
}
