package alias

import (
	"context"
	"fmt"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// OpenBackend builds the backend named by kind. path is used by the file and
// badger backends, dsn by postgres.
func OpenBackend(ctx context.Context, kind, path, dsn string) (Backend, error) {
	switch kind {
	case "", BackendFile:
		return NewFileBackend(path)
	case BackendPostgres:
		return NewPostgresBackend(ctx, dsn)
	case BackendBadger:
		return NewBadgerBackend(path)
	default:
		return nil, fmt.Errorf("unknown alias backend %q", kind)
	}
}
