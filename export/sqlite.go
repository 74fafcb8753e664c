// Package export mirrors generated bot models into a SQLite table so that
// server-side consumers can query responses and embeddings without parsing
// the JSON artifact.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/viant/botmodel/dialog"
	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vector"
	_ "modernc.org/sqlite"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS bot_model (
	bot       TEXT NOT NULL,
	query_key TEXT NOT NULL,
	query     TEXT,
	response  TEXT,
	states    TEXT,
	new_state TEXT,
	dim       INTEGER NOT NULL DEFAULT 0,
	embedding BLOB,
	PRIMARY KEY (bot, query_key)
)`

// Exporter writes models to SQLite. It is safe for concurrent use; exports
// of different bots are serialized on a single writer.
type Exporter struct {
	db     *sql.DB
	owned  bool
	mu     sync.Mutex
	schema sync.Once
	errDDL error
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithDB uses an existing handle instead of opening the DSN.
func WithDB(db *sql.DB) Option {
	return func(e *Exporter) { e.db = db }
}

// New opens (or reuses) a SQLite database and ensures the bot_model table.
func New(dsn string, opts ...Option) (*Exporter, error) {
	e := &Exporter{}
	for _, opt := range opts {
		opt(e)
	}
	if e.db == nil {
		if dsn == "" {
			return nil, fmt.Errorf("export: sqlite dsn required")
		}
		db, err := engine.Open(withPragmas(dsn, defaultBusyTimeoutMS))
		if err != nil {
			return nil, fmt.Errorf("export: open %s: %w", dsn, err)
		}
		db.SetMaxOpenConns(1)
		e.db = db
		e.owned = true
	}
	if err := e.ensureSchema(context.Background()); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// DB exposes the underlying handle.
func (e *Exporter) DB() *sql.DB { return e.db }

// Close closes the database when the exporter opened it.
func (e *Exporter) Close() error {
	if e.owned && e.db != nil {
		return e.db.Close()
	}
	return nil
}

func (e *Exporter) ensureSchema(ctx context.Context) error {
	e.schema.Do(func() {
		if _, err := e.db.ExecContext(ctx, schemaDDL); err != nil {
			e.errDDL = fmt.Errorf("export: create schema: %w", err)
		}
	})
	return e.errDDL
}

// Export replaces all rows of bot with the content of model in one
// transaction.
func (e *Exporter) Export(ctx context.Context, bot string, model *dialog.Model) (err error) {
	if model == nil || model.QueryMap == nil {
		return fmt.Errorf("export %s: empty model", bot)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export %s: begin: %w", bot, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM bot_model WHERE bot = ?`, bot); err != nil {
		return fmt.Errorf("export %s: delete: %w", bot, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bot_model
		(bot, query_key, query, response, states, new_state, dim, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("export %s: prepare: %w", bot, err)
	}
	defer stmt.Close()

	for _, key := range model.QueryMap.Keys() {
		record, _ := model.QueryMap.Get(key)
		var blob []byte
		vec, ok := model.EmbeddingMap.Get(key)
		if ok {
			if blob, err = vector.EncodeEmbedding(vec); err != nil {
				return fmt.Errorf("export %s: encode %s: %w", bot, key, err)
			}
		}
		if _, err = stmt.ExecContext(ctx, bot, key,
			nullable(record.Query), nullable(record.Response),
			nullable(record.States), nullable(record.NewState),
			len(vec), blob); err != nil {
			return fmt.Errorf("export %s: insert %s: %w", bot, key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("export %s: commit: %w", bot, err)
	}
	return nil
}

// Count returns the number of rows exported for bot.
func (e *Exporter) Count(ctx context.Context, bot string) (int, error) {
	var n int
	err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bot_model WHERE bot = ?`, bot).Scan(&n)
	return n, err
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
