package pico8dump

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is a single catalogued cart.
type Entry struct {
	SHA1        string
	Name        string
	Version     int
	Declared    int
	Length      int
	GraphicsCRC string
	Dumped      time.Time
}

// Truncated reports whether the source was shorter than its header declared.
func (e *Entry) Truncated() bool {
	return e.Length < e.Declared
}

// CartDB is the catalog of dumped carts, stored in sqlite.
type CartDB struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCartDB opens or creates the catalog in file.
func NewCartDB(file string) (*CartDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	// Workers share one connection so writes never contend for the lock
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS cart (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, name TEXT NOT NULL, version INTEGER NOT NULL, declared INTEGER NOT NULL, length INTEGER NOT NULL, gfx_crc TEXT NOT NULL, dumped INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS source (cart_id INTEGER NOT NULL UNIQUE, code BLOB NOT NULL, FOREIGN KEY(cart_id) REFERENCES cart(id))"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &CartDB{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Close closes the catalog.
func (db *CartDB) Close() error {
	db.dec.Close()
	if err := db.enc.Close(); err != nil {
		db.db.Close()
		return err
	}
	return db.db.Close()
}

// Record stores e and its source, replacing any earlier entry for the same
// file contents.
func (db *CartDB) Record(e *Entry, source []byte) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	switch err := tx.QueryRow("SELECT id FROM cart WHERE sha1 = ?", e.SHA1).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := tx.Exec("INSERT INTO cart (sha1, name, version, declared, length, gfx_crc, dumped) VALUES (?, ?, ?, ?, ?, ?, ?)", e.SHA1, e.Name, e.Version, e.Declared, e.Length, e.GraphicsCRC, e.Dumped.Unix())
		if err != nil {
			return err
		}
		if id, err = result.LastInsertId(); err != nil {
			return err
		}
	case nil:
		if _, err := tx.Exec("UPDATE cart SET name = ?, version = ?, declared = ?, length = ?, gfx_crc = ?, dumped = ? WHERE id = ?", e.Name, e.Version, e.Declared, e.Length, e.GraphicsCRC, e.Dumped.Unix(), id); err != nil {
			return err
		}
	default:
		return err
	}

	if _, err = tx.Exec("INSERT OR REPLACE INTO source (cart_id, code) VALUES (?, ?)", id, db.enc.EncodeAll(source, nil)); err != nil {
		return err
	}

	return tx.Commit()
}

const selectEntry = "SELECT sha1, name, version, declared, length, gfx_crc, dumped FROM cart"

type scanner interface {
	Scan(...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var dumped int64
	if err := s.Scan(&e.SHA1, &e.Name, &e.Version, &e.Declared, &e.Length, &e.GraphicsCRC, &dumped); err != nil {
		return nil, err
	}
	e.Dumped = time.Unix(dumped, 0)
	return &e, nil
}

func (db *CartDB) find(query string, args ...interface{}) (*Entry, error) {
	e, err := scanEntry(db.db.QueryRow(query, args...))
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return e, nil
	default:
		return nil, err
	}
}

// FindBySHA1 returns the entry for the file with the given SHA-1, or nil.
func (db *CartDB) FindBySHA1(sha string) (*Entry, error) {
	return db.find(selectEntry+" WHERE sha1 = ?", sha)
}

// FindByName returns the most recently dumped entry with the given name, or
// nil.
func (db *CartDB) FindByName(name string) (*Entry, error) {
	return db.find(selectEntry+" WHERE name = ? ORDER BY dumped DESC, id DESC LIMIT 1", name)
}

// List returns every entry ordered by name.
func (db *CartDB) List() ([]*Entry, error) {
	rows, err := db.db.Query(selectEntry + " ORDER BY name, sha1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Source returns the source recorded for the file with the given SHA-1, or
// nil if there is none.
func (db *CartDB) Source(sha string) ([]byte, error) {
	var b []byte
	switch err := db.db.QueryRow("SELECT s.code FROM source AS s JOIN cart AS c ON s.cart_id = c.id WHERE c.sha1 = ?", sha).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return db.dec.DecodeAll(b, nil)
	default:
		return nil, err
	}
}
