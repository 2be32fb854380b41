package sql

import (
	"fmt"
	"strings"

	"github.com/nsls2-sst/ucal-export/internal/storage/sql/schemas"
)

// SQLite: use ? placeholders
const SQLITE_UPSERT_PROCESSED_RUN_STATEMENT = `INSERT INTO processed_runs (uid, scan_id, save_directory, entity) VALUES (?, ?, ?, ?)
ON CONFLICT (uid) DO UPDATE SET scan_id = excluded.scan_id, save_directory = excluded.save_directory, entity = excluded.entity, updated_at = CURRENT_TIMESTAMP;`

// PostgreSQL: use $1, $2 placeholders
const POSTGRES_UPSERT_PROCESSED_RUN_STATEMENT = `INSERT INTO processed_runs (uid, scan_id, save_directory, entity) VALUES ($1, $2, $3, $4)
ON CONFLICT (uid) DO UPDATE SET scan_id = excluded.scan_id, save_directory = excluded.save_directory, entity = excluded.entity, updated_at = CURRENT_TIMESTAMP;`

func getUnsupportedDriverError(driver string) error {
	return fmt.Errorf("unsupported driver: %s", driver)
}

func schemasForDriver(driver string) (string, error) {
	switch driver {
	case SQLITE_DRIVER:
		return schemas.SQLITE_SCHEMA, nil
	case POSTGRES_DRIVER:
		return schemas.POSTGRES_SCHEMA, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

// placeholder returns the n-th (1-based) bind parameter for the driver
func placeholder(driver string, n int) string {
	if driver == POSTGRES_DRIVER {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// quoteIdentifier properly quotes an identifier for the given driver
func quoteIdentifier(_ /*driver*/ string, identifier string) string {
	// Escape double quotes by doubling them
	escaped := strings.ReplaceAll(identifier, `"`, `""`)
	return fmt.Sprintf(`"%s"`, escaped)
}

// createUpsertStatement returns a driver-specific INSERT ... ON CONFLICT statement
func createUpsertStatement(driver, tableName string) (string, error) {
	switch driver + tableName {
	case POSTGRES_DRIVER + TABLE_PROCESSED_RUNS:
		return POSTGRES_UPSERT_PROCESSED_RUN_STATEMENT, nil
	case SQLITE_DRIVER + TABLE_PROCESSED_RUNS:
		return SQLITE_UPSERT_PROCESSED_RUN_STATEMENT, nil
	default:
		return "", getUnsupportedDriverError(driver)
	}
}

// createGetEntityStatement returns a driver-specific SELECT statement
// to retrieve an entity by uid
func createGetEntityStatement(driver, tableName string) (string, error) {
	if driver != POSTGRES_DRIVER && driver != SQLITE_DRIVER {
		return "", getUnsupportedDriverError(driver)
	}
	return fmt.Sprintf(`SELECT uid, updated_at, entity FROM %s WHERE uid = %s;`,
		quoteIdentifier(driver, tableName), placeholder(driver, 1)), nil
}

// createCountProcessedStatement counts the rows of a uid saved under a directory
func createCountProcessedStatement(driver, tableName string) (string, error) {
	if driver != POSTGRES_DRIVER && driver != SQLITE_DRIVER {
		return "", getUnsupportedDriverError(driver)
	}
	return fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE uid = %s AND save_directory = %s;`,
		quoteIdentifier(driver, tableName), placeholder(driver, 1), placeholder(driver, 2)), nil
}

// createDeleteEntityStatement returns a driver-specific DELETE statement
// to delete an entity by uid
func createDeleteEntityStatement(driver, tableName string) (string, error) {
	if driver != POSTGRES_DRIVER && driver != SQLITE_DRIVER {
		return "", getUnsupportedDriverError(driver)
	}
	return fmt.Sprintf(`DELETE FROM %s WHERE uid = %s;`,
		quoteIdentifier(driver, tableName), placeholder(driver, 1)), nil
}
