package storage

import (
	"fmt"
	"os"
)

// DSNEnv names the environment variable consulted for the postgres DSN when
// none is passed explicitly.
const DSNEnv = "ANTCOLONY_DB_DSN"

// NewStore builds a backend by name. location is the sqlite file path or the
// postgres DSN; it is ignored for the memory store.
func NewStore(kind, location string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(location)
	case "postgres":
		if location == "" {
			location = os.Getenv(DSNEnv)
		}
		if location == "" {
			return nil, fmt.Errorf("postgres backend requires a dsn or %s", DSNEnv)
		}
		return NewPostgresStore(location), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
