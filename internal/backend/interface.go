package backend

import (
	"context"
	"errors"

	"wagebook/internal/store"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// PingFunc reports whether the backend can currently serve requests.
type PingFunc func(ctx context.Context) error

// BackendResult contains the store plus its optional cleanup and ping hooks.
type BackendResult struct {
	Store   store.RecordStore
	Cleanup CleanupFunc
	Ping    PingFunc
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store selected by config.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	DatabaseURL      string
	DatabaseMaxConns int32

	// CSV specific
	CSVDirectory string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleRecordsSheet       string
	GoogleWorkersSheet       string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
	CSVBackend      BackendType = "csv"
)

var errNilConfig = errors.New("app config is nil")

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend, CSVBackend:
		return true
	default:
		return false
	}
}
