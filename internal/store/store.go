package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by KV.Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KV is a durable string-keyed byte store shared by all quiz sessions.
// Each session reads and writes only its own key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error

	// List returns the keys that start with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNATS   = "nats"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend string

	// DBPath is the SQLite file. Empty means DefaultDBPath().
	DBPath string

	// RedisURL is a redis:// URL for the redis backend.
	RedisURL string

	// NATSURL and Bucket configure the JetStream key-value backend.
	NATSURL string
	Bucket  string

	// TTL is the retention applied by backends that expire keys natively.
	TTL time.Duration
}

// Open returns the KV backend named in opts.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		path := opts.DBPath
		if path == "" {
			p, err := DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve DB path: %w", err)
			}
			path = p
		}
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.TTL)
	case BackendNATS:
		return OpenNATS(ctx, opts.NATSURL, opts.Bucket, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", opts.Backend)
	}
}

// DefaultDBPath resolves the database file path in priority order:
// 1. KBQUIZ_DB environment variable
// 2. $XDG_DATA_HOME/kbquiz/kbquiz.db
// 3. ~/.local/share/kbquiz/kbquiz.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("KBQUIZ_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "kbquiz", "kbquiz.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
