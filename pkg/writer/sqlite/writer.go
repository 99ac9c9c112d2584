// Package sqlite persists crosstab matrices to a SQLite database so runs
// can be queried and compared after the fact.
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/quant"
)

// Timestamp format for the runs table (ISO 8601).
const createdAtFormat = time.RFC3339

// Writer handles writing crosstab results to a SQLite database file.
type Writer struct {
	db       *sql.DB
	path     string
	runStmt  *sql.Stmt
	cellStmt *sql.Stmt
}

// NewWriter creates a new SQLite writer.
func NewWriter(path string) (*Writer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:   db,
		path: path,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema.
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		level TEXT NOT NULL,
		species_count INTEGER NOT NULL,
		sample_count INTEGER NOT NULL,
		params TEXT
	);

	CREATE TABLE IF NOT EXISTS crosstab (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		species TEXT NOT NULL,
		measurement TEXT NOT NULL,
		log2_ratio DOUBLE NOT NULL
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion.
func (w *Writer) prepareStatements() error {
	var err error

	w.runStmt, err = w.db.Prepare(`
		INSERT INTO runs (
			run_id, created_at, level, species_count, sample_count, params
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare run statement: %w", err)
	}

	w.cellStmt, err = w.db.Prepare(`
		INSERT INTO crosstab (run_id, species, measurement, log2_ratio)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cell statement: %w", err)
	}

	return nil
}

// WriteMatrix writes one crosstab under the given run id. Only present
// cells are stored; missing cells stay implicit in the long form. Returns
// the number of cells written.
func (w *Writer) WriteMatrix(runID string, level core.Level, m *quant.Matrix, params string) (int, error) {
	rows, cols := m.Dims()

	_, err := w.runStmt.Exec(
		runID,
		time.Now().UTC().Format(createdAtFormat),
		level.Name,
		rows,
		cols,
		params,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	species := m.Species()
	measurements := m.Measurements()
	written := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if _, err := w.cellStmt.Exec(runID, species[i], measurements[j], v); err != nil {
				return written, fmt.Errorf("failed to insert cell %s/%s: %w", species[i], measurements[j], err)
			}
			written++
		}
	}

	return written, nil
}

// Finalize builds the query indexes and closes the database. Indexing after
// the bulk insert keeps large loads fast.
func (w *Writer) Finalize() error {
	_, err := w.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_crosstab_run ON crosstab(run_id);
		CREATE INDEX IF NOT EXISTS idx_crosstab_species ON crosstab(species);
	`)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// Close prepared statements
	if w.runStmt != nil {
		w.runStmt.Close()
	}
	if w.cellStmt != nil {
		w.cellStmt.Close()
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize).
func (w *Writer) Close() error {
	return w.Finalize()
}
