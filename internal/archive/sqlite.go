package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// openSQLite открывает файл SQLite; без append существующий файл удаляется
func openSQLite(path string, appendMode bool) (*sqlx.DB, error) {
	if !appendMode {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove existing archive: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// один писатель, каждая вставка коммитится сразу
	db.SetMaxOpenConns(1)
	return db, nil
}

func execAll(db *sqlx.DB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	return nil
}
