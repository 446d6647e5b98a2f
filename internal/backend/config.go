package backend

import (
	"fmt"

	"wagebook/internal/config"
	"wagebook/internal/store/sheets"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errNilConfig
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		DatabaseURL:      appConfig.DatabaseURL,
		DatabaseMaxConns: int32(appConfig.DatabaseMaxConns),

		CSVDirectory: appConfig.CSVDataDir,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleRecordsSheet:       appConfig.GoogleRecordsSheet,
		GoogleWorkersSheet:       appConfig.GoogleWorkersSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		DataDirectory: appConfig.DataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case CSVBackend:
		if c.CSVDirectory == "" {
			return fmt.Errorf("CSV directory is required for csv backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data" when empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend, CSVBackend}
}

// SheetsConfig is the part of c that opens a Google Sheets store. The
// mirror worker uses it to open its target next to a different primary.
func (c Config) SheetsConfig() sheets.Config {
	return sheets.Config{
		SpreadsheetID:   c.GoogleSpreadsheetID,
		RecordsSheet:    c.GoogleRecordsSheet,
		WorkersSheet:    c.GoogleWorkersSheet,
		CredentialsJSON: c.GoogleServiceAccountJSON,
		CredentialsFile: c.GoogleServiceAccountFile,
	}
}
