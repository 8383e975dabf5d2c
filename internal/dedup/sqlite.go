package dedup

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// The set is throwaway, so durability is switched off entirely.
const seenSchema = `
PRAGMA journal_mode = OFF;
PRAGMA synchronous = OFF;
PRAGMA temp_store = FILE;
CREATE TABLE IF NOT EXISTS seen (
  key BLOB PRIMARY KEY
) WITHOUT ROWID;
`

// sqliteSet holds keys in a SQLite table inside one long transaction that is
// never committed; Close drops the database file.
type sqliteSet struct {
	db     *sql.DB
	tx     *sql.Tx
	insert *sql.Stmt
	dbPath string
}

func newSQLiteSet(dbPath string) (*sqliteSet, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite store needs a database path")
	}
	// A leftover from an interrupted run would pre-seed the set.
	os.Remove(dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening seen-set database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(seenSchema); err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("creating seen-set schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO seen (key) VALUES (?)`)
	if err != nil {
		tx.Rollback()
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("preparing seen insert: %w", err)
	}

	return &sqliteSet{db: db, tx: tx, insert: stmt, dbPath: dbPath}, nil
}

func (s *sqliteSet) Add(key []byte) (bool, error) {
	res, err := s.insert.Exec(key)
	if err != nil {
		return false, fmt.Errorf("inserting seen key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading insert result: %w", err)
	}
	return n == 1, nil
}

func (s *sqliteSet) Close() error {
	s.insert.Close()
	s.tx.Rollback()
	err := s.db.Close()
	if rerr := os.Remove(s.dbPath); rerr != nil && !os.IsNotExist(rerr) && err == nil {
		err = rerr
	}
	if err != nil {
		return fmt.Errorf("closing seen-set database: %w", err)
	}
	return nil
}
