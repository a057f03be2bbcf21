// Package storage provides the artifact sink for captured page content and
// screenshots, on top of pluggable blob stores.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/metrics"
)

// BlobStore persists raw bytes under a key and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Kind names an artifact.
type Kind string

// Artifact kinds.
const (
	KindContent    Kind = "content"
	KindScreenshot Kind = "screenshot"
)

// Extension returns the file extension for k.
func (k Kind) Extension() string {
	switch k {
	case KindContent:
		return "html"
	case KindScreenshot:
		return "png"
	default:
		return "bin"
	}
}

// ContentType returns the MIME type for k.
func (k Kind) ContentType() string {
	switch k {
	case KindContent:
		return "text/html; charset=utf-8"
	case KindScreenshot:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// ArtifactKey composes {env}/{yyyyMMdd}/{id}/{id}_{kind}.{ext}. The date
// partition comes from the id; a malformed id lands in the sentinel
// partition and the decode error is returned alongside the key.
func ArtifactKey(env, artifactID string, kind Kind) (string, error) {
	partition, err := id.PartitionOf(artifactID)
	key := fmt.Sprintf("%s/%s/%s/%s_%s.%s",
		strings.Trim(env, "/"), partition, artifactID, artifactID, kind, kind.Extension())
	return key, err
}

// ArtifactSink uploads artifacts. It never returns errors: an unconfigured
// sink or a failed upload yields no location.
type ArtifactSink struct {
	store  BlobStore
	env    string
	logger *zap.Logger
}

// NewArtifactSink builds a sink. A nil store produces an unconfigured sink.
func NewArtifactSink(store BlobStore, env string, logger *zap.Logger) *ArtifactSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if env == "" {
		env = "development"
	}
	return &ArtifactSink{store: store, env: env, logger: logger.Named("artifacts")}
}

// Configured reports whether uploads can happen.
func (s *ArtifactSink) Configured() bool {
	return s != nil && s.store != nil
}

// Put uploads data as kind for the record artifactID and returns its key.
func (s *ArtifactSink) Put(ctx context.Context, artifactID string, kind Kind, data []byte) (string, bool) {
	if !s.Configured() {
		if s != nil {
			s.logger.Warn("artifact sink not configured", zap.String("id", artifactID), zap.String("kind", string(kind)))
		}
		return "", false
	}
	key, err := ArtifactKey(s.env, artifactID, kind)
	if err != nil {
		s.logger.Error("artifact id has no decodable timestamp; using sentinel partition",
			zap.String("id", artifactID), zap.String("key", key), zap.Error(err))
	}
	if _, err := s.store.PutObject(ctx, key, kind.ContentType(), bytes.NewReader(data)); err != nil {
		metrics.ObserveArtifactUpload(string(kind), err)
		s.logger.Error("artifact upload failed",
			zap.String("id", artifactID), zap.String("key", key), zap.Int("bytes", len(data)), zap.Error(err))
		return "", false
	}
	metrics.ObserveArtifactUpload(string(kind), nil)
	s.logger.Info("artifact stored", zap.String("id", artifactID), zap.String("key", key))
	return key, true
}

// PutContentHTML uploads rendered page HTML.
func (s *ArtifactSink) PutContentHTML(ctx context.Context, artifactID string, html []byte) (string, bool) {
	return s.Put(ctx, artifactID, KindContent, html)
}

// PutScreenshotPNG uploads a full-page screenshot.
func (s *ArtifactSink) PutScreenshotPNG(ctx context.Context, artifactID string, png []byte) (string, bool) {
	return s.Put(ctx, artifactID, KindScreenshot, png)
}
