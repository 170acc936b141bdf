package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Simulator stands in for the S3 client when no bucket is configured
// (local development, tests). URLs are deterministic but point nowhere.
type Simulator struct {
	bucket   string
	endpoint string
}

func NewSimulator(bucket, endpoint string) *Simulator {
	return &Simulator{
		bucket:   strings.TrimSpace(bucket),
		endpoint: strings.TrimSpace(endpoint),
	}
}

func (s *Simulator) UploadProfilePicture(userID int64, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	if len(imageData) > maxImageBytes {
		return "", fmt.Errorf("image too large: %d bytes", len(imageData))
	}

	sum := sha256.Sum256(imageData)
	key := hex.EncodeToString(sum[:])

	ep := s.endpoint
	if ep == "" {
		ep = "https://storage.example.invalid"
	}
	bucket := s.bucket
	if bucket == "" {
		bucket = "communityhub"
	}

	return fmt.Sprintf("%s/%s/profiles/%d/%s.png", strings.TrimRight(ep, "/"), bucket, userID, key), nil
}
