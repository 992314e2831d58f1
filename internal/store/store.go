package store

import (
	"context"
	"errors"

	"github.com/alphabot-ai/confessional/internal/model"
)

var (
	ErrNotFound    = errors.New("message not found")
	ErrDuplicateID = errors.New("duplicate message id")
)

// Store holds every piece of board state. Implementations are safe for
// concurrent use and keep nothing beyond the life of the process.
type Store interface {
	MessageStore
	SessionStore
	Close() error
}

type MessageStore interface {
	// ListMessages returns messages newest first. An empty category or
	// model.CategoryAll returns everything.
	ListMessages(ctx context.Context, category model.Category) ([]model.Message, error)
	GetMessage(ctx context.Context, id int64) (model.Message, error)
	// InsertMessage stores msg as the newest message.
	InsertMessage(ctx context.Context, msg model.Message) error
	// DeleteMessage removes the message with its like counter and reports.
	// Deleting an unknown id returns ErrNotFound.
	DeleteMessage(ctx context.Context, id int64) error
	Like(ctx context.Context, id int64) (int, error)
	// Unlike never takes the counter below zero.
	Unlike(ctx context.Context, id int64) (int, error)
	// AddReport returns the message's report count after appending.
	AddReport(ctx context.Context, id int64, report model.Report) (int, error)
	// CountsByCategory counts stored messages per category and under
	// model.CategoryAll.
	CountsByCategory(ctx context.Context) (model.Counts, error)
	// ListReported returns messages with at least one report, newest first.
	ListReported(ctx context.Context) ([]model.ReportedMessage, error)
}

// SessionStore tracks live admin tokens by membership only.
type SessionStore interface {
	CreateSession(ctx context.Context, token string) error
	SessionExists(ctx context.Context, token string) (bool, error)
	// DeleteSession is a no-op for unknown tokens.
	DeleteSession(ctx context.Context, token string) error
	CountSessions(ctx context.Context) (int, error)
}
