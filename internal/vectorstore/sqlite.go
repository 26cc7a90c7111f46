package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	indexFileName = "index.db"
	formatVersion = "1"
)

type indexMeta struct {
	Dimension int
	Model     string
}

var schemaSQL = []string{
	`CREATE TABLE meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE records (
		id        INTEGER PRIMARY KEY,
		text      TEXT NOT NULL,
		embedding BLOB NOT NULL
	)`,
}

// writeIndex builds the index in a temporary file and renames it over the old one,
// so readers never observe a half-written index.
func writeIndex(ctx context.Context, dir string, meta indexMeta, records []Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir failed: %w", err)
	}
	final := filepath.Join(dir, indexFileName)
	tmp := final + ".tmp"
	_ = os.Remove(tmp)

	if err := fillIndex(ctx, tmp, meta, records); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("replace index failed: %w", err)
	}
	return nil
}

func fillIndex(ctx context.Context, path string, meta indexMeta, records []Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index failed: %w", err)
	}
	defer db.Close()

	for _, stmt := range schemaSQL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index schema failed: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	metaRows := map[string]string{
		"format_version":  formatVersion,
		"dimension":       strconv.Itoa(meta.Dimension),
		"embedding_model": meta.Model,
	}
	for k, v := range metaRows {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("write index meta failed: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO records (id, text, embedding) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare record insert failed: %w", err)
	}
	defer stmt.Close()
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, i, r.Text, encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("write record %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index failed: %w", err)
	}
	return nil
}

func readIndex(ctx context.Context, dir string) (indexMeta, []Record, error) {
	path := filepath.Join(dir, indexFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return indexMeta{}, nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return indexMeta{}, nil, fmt.Errorf("stat index failed: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return indexMeta{}, nil, fmt.Errorf("open index failed: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return indexMeta{}, nil, fmt.Errorf("%w: read meta: %v", ErrIncompatibleFormat, err)
	}
	values := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return indexMeta{}, nil, fmt.Errorf("%w: scan meta: %v", ErrIncompatibleFormat, err)
		}
		values[k] = v
	}
	rows.Close()

	if values["format_version"] != formatVersion {
		return indexMeta{}, nil, fmt.Errorf("%w: format version %q", ErrIncompatibleFormat, values["format_version"])
	}
	dim, err := strconv.Atoi(values["dimension"])
	if err != nil {
		return indexMeta{}, nil, fmt.Errorf("%w: dimension %q", ErrIncompatibleFormat, values["dimension"])
	}
	meta := indexMeta{Dimension: dim, Model: values["embedding_model"]}

	recRows, err := db.QueryContext(ctx, "SELECT text, embedding FROM records ORDER BY id ASC")
	if err != nil {
		return indexMeta{}, nil, fmt.Errorf("%w: read records: %v", ErrIncompatibleFormat, err)
	}
	defer recRows.Close()

	var records []Record
	for recRows.Next() {
		var text string
		var blob []byte
		if err := recRows.Scan(&text, &blob); err != nil {
			return indexMeta{}, nil, fmt.Errorf("%w: scan record: %v", ErrIncompatibleFormat, err)
		}
		vec := decodeVector(blob)
		if len(vec) != dim {
			return indexMeta{}, nil, fmt.Errorf("%w: record dimension %d, index dimension %d", ErrIncompatibleFormat, len(vec), dim)
		}
		records = append(records, Record{Text: text, Vector: vec})
	}
	if err := recRows.Err(); err != nil {
		return indexMeta{}, nil, fmt.Errorf("iterate records failed: %w", err)
	}
	return meta, records, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
