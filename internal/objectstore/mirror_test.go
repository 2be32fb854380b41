package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/nsls2-sst/ucal-export/internal/config"
	"github.com/nsls2-sst/ucal-export/internal/logging"
)

type fakeUploader struct {
	bucket, object, file, contentType string
	err                               error
}

func (f *fakeUploader) FPutObject(_ context.Context, bucket, object, file string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.bucket, f.object, f.file, f.contentType = bucket, object, file, opts.ContentType
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: 42}, nil
}

func TestMirror(t *testing.T) {
	logger := logging.FallbackLogger()
	root := "/nsls2/data/sst/proposals"

	t.Run("disabled mirror", func(t *testing.T) {
		m, err := NewMirror(&config.ObjectStoreConfig{}, root, logger)
		if err != nil || m != nil {
			t.Fatalf("Expected no mirror, got %v, %v", m, err)
		}
	})

	t.Run("object names are relative to the root", func(t *testing.T) {
		m := NewMirrorWithClient(&fakeUploader{}, "exports", "ucal", root, logger)
		tests := []struct {
			file string
			want string
		}{
			{root + "/2025-1/pass-1/20250301_export/xdi/a.xdi", "ucal/2025-1/pass-1/20250301_export/xdi/a.xdi"},
			{"/tmp/elsewhere/b.h5", "ucal/b.h5"},
		}
		for _, tt := range tests {
			if got := m.ObjectName(tt.file); got != tt.want {
				t.Fatalf("ObjectName(%s) = %s, want %s", tt.file, got, tt.want)
			}
		}
	})

	t.Run("upload", func(t *testing.T) {
		fake := &fakeUploader{}
		m := NewMirrorWithClient(fake, "exports", "", root, logger)
		if err := m.Upload(context.Background(), root+"/c/hdf5/scan.h5"); err != nil {
			t.Fatalf("Upload failed: %v", err)
		}
		if fake.bucket != "exports" || fake.object != "c/hdf5/scan.h5" || fake.contentType != "application/x-hdf5" {
			t.Fatalf("Unexpected upload %+v", fake)
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		m := NewMirrorWithClient(&fakeUploader{err: errors.New("denied")}, "exports", "", root, logger)
		if err := m.Upload(context.Background(), root+"/c/xdi/a.xdi"); err == nil {
			t.Fatalf("Expected an upload error")
		}
	})
}
