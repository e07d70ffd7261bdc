// Package export writes the records of a container into a SQLite database.
//
// The database is built in a temporary file next to the destination inside
// a single transaction. Only after the transaction commits is the file
// renamed over the destination, so an interrupted or failed export leaves
// the destination as it was.
package export

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/stchris/pstexplorer/internal/fileutil"
	"github.com/stchris/pstexplorer/internal/query"
	"github.com/stchris/pstexplorer/internal/record"
	"github.com/stchris/pstexplorer/internal/walker"
)

//go:embed schema.sql
var schema string

// ErrSchema reports that the export tables could not be created.
var ErrSchema = errors.New("create export schema")

// Rollback journal: the temp database must not leave -wal/-shm files behind
// when it is renamed.
const sqliteParams = "?_journal_mode=DELETE&_foreign_keys=ON"

// dateLayout is RFC 3339 in UTC.
const dateLayout = "2006-01-02T15:04:05Z"

// Options control an export.
type Options struct {
	// Limit caps the number of message rows; query.NoLimit exports all.
	// Folder rows are always complete.
	Limit int
}

// Summary describes a finished export.
type Summary struct {
	Path        string
	Folders     int
	Messages    int
	Attachments int
	Partial     int
	Skipped     int
}

// Exporter exports from one engine.
type Exporter struct {
	engine *query.Engine
	log    *slog.Logger

	// beforeInsert runs before each message row is written.
	beforeInsert func(*record.Record) error
}

// New returns an exporter. A nil logger uses slog.Default().
func New(e *query.Engine, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{engine: e, log: logger}
}

// Export writes every folder and up to opts.Limit messages from e into a
// new SQLite database at dest, replacing any existing file.
func Export(ctx context.Context, e *query.Engine, dest string, opts Options) (*Summary, error) {
	return New(e, nil).Export(ctx, dest, opts)
}

// Export writes the container into dest. See the package doc for the
// atomicity guarantee.
func (x *Exporter) Export(ctx context.Context, dest string, opts Options) (*Summary, error) {
	dir := filepath.Dir(dest)
	if err := fileutil.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	tmpPath, err := fileutil.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp", 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp database: %w", err)
	}

	sum, err := x.write(ctx, tmpPath, opts)
	if err != nil {
		removeDB(tmpPath)
		return nil, err
	}

	removeSidecars(dest, x.log)
	if err := fileutil.ReplaceFile(tmpPath, dest); err != nil {
		removeDB(tmpPath)
		return nil, fmt.Errorf("replace %s: %w", dest, err)
	}
	sum.Path = dest
	x.log.Info("export complete", "path", dest,
		"folders", sum.Folders, "messages", sum.Messages, "partial", sum.Partial)
	return sum, nil
}

func (x *Exporter) write(ctx context.Context, path string, opts Options) (sum *Summary, err error) {
	db, err := sql.Open("sqlite3", path+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("open export database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export database: %w", cerr)
		}
	}()
	// One connection keeps the schema and the transaction on the same file
	// handle.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin export: %w", err)
	}
	sum, err = x.fill(ctx, tx, opts)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit export: %w", err)
	}
	return sum, nil
}

func (x *Exporter) fill(ctx context.Context, tx *sql.Tx, opts Options) (*Summary, error) {
	w, err := newWriter(ctx, tx)
	if err != nil {
		return nil, err
	}
	defer w.close()

	sum := &Summary{}
	skipped := x.engine.Skipped()

	err = x.engine.Folders(ctx, func(f *walker.Folder) error {
		ok, err := w.folder(f)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("write folder %s: %w", f.Path, err)
		}
		if ok {
			sum.Folders++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := x.engine.List(ctx, opts.Limit)
	defer c.Close()
	for c.Next() {
		rec := c.Record()
		if x.beforeInsert != nil {
			if err := x.beforeInsert(rec); err != nil {
				return nil, err
			}
		}
		ok, err := w.message(rec)
		if err != nil {
			// A cancelled context rolls the transaction back under us.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("write item %s: %w", rec.ID, err)
		}
		if !ok {
			x.log.Warn("skipping item already exported", "item", rec.ID, "folder", rec.FolderPath)
			continue
		}
		sum.Messages++
		sum.Attachments += len(rec.Attachments)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	sum.Partial = c.Partial()
	sum.Skipped = x.engine.Skipped() - skipped
	return sum, nil
}

// writer holds the prepared insert statements of one transaction.
type writer struct {
	folders  *sql.Stmt
	messages *sql.Stmt
}

func newWriter(ctx context.Context, tx *sql.Tx) (*writer, error) {
	w := &writer{}
	var err error
	if w.folders, err = tx.PrepareContext(ctx,
		`INSERT INTO folders (id, parent_id, name, path) VALUES (?, ?, ?, ?)`); err != nil {
		return nil, fmt.Errorf("prepare folder insert: %w", err)
	}
	if w.messages, err = tx.PrepareContext(ctx,
		`INSERT INTO messages (id, folder_id, kind, message_class, subject, sender,
			to_recipients, cc_recipients, date, body, attachment_count, decode_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		w.close()
		return nil, fmt.Errorf("prepare message insert: %w", err)
	}
	return w, nil
}

func (w *writer) close() {
	for _, s := range []*sql.Stmt{w.folders, w.messages} {
		if s != nil {
			s.Close()
		}
	}
}

// folder inserts f. It returns false when a folder with the same id was
// already written, which happens when a folder is linked from two parents.
func (w *writer) folder(f *walker.Folder) (bool, error) {
	var parent any
	if p := f.Parent(); p != nil {
		parent = int64(p.ID)
	}
	_, err := w.folders.Exec(int64(f.ID), parent, f.Name, f.Path)
	if isDuplicate(err) {
		return false, nil
	}
	return err == nil, err
}

func (w *writer) message(r *record.Record) (bool, error) {
	var date, decodeErr any
	if t, ok := r.Date.Time(); ok {
		date = t.Format(dateLayout)
	}
	if r.DecodeErr != nil {
		decodeErr = r.DecodeErr.Error()
	}
	_, err := w.messages.Exec(
		int64(r.ID), int64(r.FolderID), r.Kind.String(), r.MessageClass,
		r.Subject, r.From(), r.To(), r.Cc(), date, r.Body,
		len(r.Attachments), decodeErr,
	)
	if isDuplicate(err) {
		return false, nil
	}
	return err == nil, err
}

// isDuplicate reports a primary key collision from the sqlite3 driver.
// Handles both value and pointer forms of sqlite3.Error.
func isDuplicate(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var sep *sqlite3.Error
	if errors.As(err, &sep) && sep != nil {
		return sep.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// removeDB removes a database file and its rollback journal.
func removeDB(path string) {
	os.Remove(path)
	os.Remove(path + "-journal")
}

// removeSidecars removes WAL files left by an earlier database at path;
// SQLite would otherwise replay them into the new file.
func removeSidecars(path string, logger *slog.Logger) {
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove stale sidecar", "path", path+suffix, "error", err)
		}
	}
}

// DefaultPath returns the default export path for a container: its file
// name with the extension replaced by .db, in dir (or the current
// directory when dir is empty).
func DefaultPath(container, dir string) string {
	base := filepath.Base(container)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "export"
	}
	return filepath.Join(dir, stem+".db")
}
