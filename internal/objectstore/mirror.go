// Package objectstore mirrors written export files to an S3 compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nsls2-sst/ucal-export/internal/config"
)

// Uploader is the part of the minio client the mirror needs.
type Uploader interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Mirror struct {
	client Uploader
	bucket string
	prefix string
	root   string
	logger *slog.Logger
}

// NewMirror returns nil when mirroring is disabled.
func NewMirror(cfg *config.ObjectStoreConfig, root string, logger *slog.Logger) (*Mirror, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return NewMirrorWithClient(client, cfg.Bucket, cfg.Prefix, root, logger), nil
}

func NewMirrorWithClient(client Uploader, bucket string, prefix string, root string, logger *slog.Logger) *Mirror {
	return &Mirror{client: client, bucket: bucket, prefix: prefix, root: root, logger: logger}
}

// ObjectName keys a file by its path below the proposal root.
func (m *Mirror) ObjectName(file string) string {
	rel, err := filepath.Rel(m.root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(file)
	}
	return path.Join(m.prefix, filepath.ToSlash(rel))
}

func (m *Mirror) Upload(ctx context.Context, file string) error {
	object := m.ObjectName(file)
	info, err := m.client.FPutObject(ctx, m.bucket, object, file, minio.PutObjectOptions{ContentType: contentType(file)})
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", file, m.bucket, object, err)
	}
	m.logger.Info("Mirrored export file", "bucket", m.bucket, "object", object, "size", info.Size)
	return nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".h5", ".hdf5":
		return "application/x-hdf5"
	default:
		return "text/plain"
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
