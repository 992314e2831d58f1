// Package sqlite implements store.Store on an in-memory SQLite database.
// Nothing is written to disk; the database lives as long as the Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// MemoryDSN names a private in-memory database shared by the pool's connections.
func MemoryDSN(name string) string {
	if name == "" {
		name = "confessional"
	}
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name))
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps the shared-cache database alive and
	// serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations run once each, in order, tracked in schema_version.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id INTEGER NOT NULL UNIQUE,
	text TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	image TEXT,
	likes INTEGER NOT NULL DEFAULT 0,
	display_name TEXT NOT NULL,
	avatar TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_category ON messages(category);

CREATE TABLE IF NOT EXISTS like_counters (
	message_id INTEGER PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
	FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	reason TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(message_id) REFERENCES messages(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_reports_message_id ON reports(message_id);

CREATE TABLE IF NOT EXISTS admin_sessions (
	token TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

const messageColumns = `id, text, category, created_at, image, likes, display_name, avatar`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (model.Message, error) {
	var (
		msg      model.Message
		category string
		created  int64
		image    sql.NullString
	)
	err := row.Scan(&msg.ID, &msg.Text, &category, &created, &image, &msg.Likes, &msg.DisplayName, &msg.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, store.ErrNotFound
	}
	if err != nil {
		return model.Message{}, err
	}
	msg.Category = model.Category(category)
	msg.Timestamp = time.Unix(0, created).UTC()
	if image.Valid {
		ref := image.String
		msg.Image = &ref
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, category model.Category) ([]model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages`
	var args []any
	if category != "" && category != model.CategoryAll {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY seq DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *Store) GetMessage(ctx context.Context, id int64) (model.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

func (s *Store) InsertMessage(ctx context.Context, msg model.Message) error {
	if msg.Likes < 0 {
		msg.Likes = 0
	}
	var image any
	if msg.Image != nil {
		image = *msg.Image
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO messages (id, text, category, created_at, image, likes, display_name, avatar)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, msg.ID, msg.Text, string(msg.Category), msg.Timestamp.UnixNano(), image, msg.Likes, msg.DisplayName, msg.Avatar)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicateID
			}
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO like_counters (message_id, count) VALUES (?, ?)`, msg.ID, msg.Likes)
		return err
	})
}

func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE message_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM like_counters WHERE message_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *Store) Like(ctx context.Context, id int64) (int, error) {
	return s.adjustLikes(ctx, id, `count + 1`)
}

func (s *Store) Unlike(ctx context.Context, id int64) (int, error) {
	return s.adjustLikes(ctx, id, `MAX(count - 1, 0)`)
}

func (s *Store) adjustLikes(ctx context.Context, id int64, expr string) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireMessage(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO like_counters (message_id, count) VALUES (?, 0)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE like_counters SET count = `+expr+` WHERE message_id = ?`, id); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT count FROM like_counters WHERE message_id = ?`, id).Scan(&count); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE messages SET likes = ? WHERE id = ?`, count, id)
		return err
	})
	return count, err
}

func (s *Store) AddReport(ctx context.Context, id int64, report model.Report) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireMessage(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO reports (message_id, reason, created_at) VALUES (?, ?, ?)`,
			id, report.Reason, report.Timestamp.UnixNano()); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE message_id = ?`, id).Scan(&count)
	})
	return count, err
}

func (s *Store) CountsByCategory(ctx context.Context) (model.Counts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM messages GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := model.Counts{model.CategoryAll: 0}
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[model.Category(category)] = n
		counts[model.CategoryAll] += n
	}
	return counts, rows.Err()
}

func (s *Store) ListReported(ctx context.Context) ([]model.ReportedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT m.id, m.text, m.category, m.created_at, m.image, m.likes, m.display_name, m.avatar, r.reason, r.created_at
FROM messages m
JOIN reports r ON r.message_id = m.id
ORDER BY m.seq DESC, r.id ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ReportedMessage, 0)
	for rows.Next() {
		var (
			msg      model.Message
			category string
			created  int64
			image    sql.NullString
			report   model.Report
			reported int64
		)
		if err := rows.Scan(&msg.ID, &msg.Text, &category, &created, &image, &msg.Likes, &msg.DisplayName, &msg.Avatar, &report.Reason, &reported); err != nil {
			return nil, err
		}
		report.Timestamp = time.Unix(0, reported).UTC()
		if n := len(out); n > 0 && out[n-1].ID == msg.ID {
			out[n-1].Reports = append(out[n-1].Reports, report)
			continue
		}
		msg.Category = model.Category(category)
		msg.Timestamp = time.Unix(0, created).UTC()
		if image.Valid {
			ref := image.String
			msg.Image = &ref
		}
		out = append(out, model.ReportedMessage{Message: msg, Reports: []model.Report{report}})
	}
	return out, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO admin_sessions (token, created_at) VALUES (?, ?)`,
		token, time.Now().UnixNano())
	return err
}

func (s *Store) SessionExists(ctx context.Context, token string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_sessions WHERE token = ?`, token).Scan(&n)
	return n > 0, err
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token = ?`, token)
	return err
}

func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_sessions`).Scan(&n)
	return n, err
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireMessage(ctx context.Context, tx *sql.Tx, id int64) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
