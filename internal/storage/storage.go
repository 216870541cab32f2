package storage

import (
	"context"
	"mime"
	"path"
)

// ObjectStore uploads a local file under objectName and returns a URL
// that serves it.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

var (
	_ Lister = (*GCSStorage)(nil)
	_ Lister = (*LocalStorage)(nil)
)

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
