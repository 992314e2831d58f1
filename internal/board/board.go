// Package board is the service object behind the HTTP API. It owns the
// message store, the admission pipeline and the admin guard, and publishes
// a live event for every change.
package board

import (
	"context"
	"strings"
	"time"

	"github.com/alphabot-ai/confessional/internal/admission"
	"github.com/alphabot-ai/confessional/internal/live"
	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/metrics"
	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/store"
)

const DefaultReportReason = "No reason provided"

type Guard interface {
	Authorize(ctx context.Context, token string) error
}

type Submitter interface {
	Submit(ctx context.Context, sub admission.Submission) (model.Message, error)
}

type Notifier interface {
	Publish(eventType string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, any) {}

type Service struct {
	messages   store.MessageStore
	admission  Submitter
	guard      Guard
	notify     Notifier
	categories []model.Category
	now        func() time.Time
}

// New wires a board. notify may be nil.
func New(messages store.MessageStore, submitter Submitter, guard Guard, notify Notifier, categories []model.Category) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	if len(categories) == 0 {
		categories = model.DefaultCategories
	}
	return &Service{
		messages:   messages,
		admission:  submitter,
		guard:      guard,
		notify:     notify,
		categories: categories,
		now:        time.Now,
	}
}

func (s *Service) Categories() []model.Category {
	return append([]model.Category(nil), s.categories...)
}

func (s *Service) Submit(ctx context.Context, sub admission.Submission) (model.Message, error) {
	msg, err := s.admission.Submit(ctx, sub)
	if err != nil {
		return model.Message{}, err
	}
	s.notify.Publish(live.EventMessageCreated, msg)
	return msg, nil
}

// List returns messages newest first. An empty category or "all" lists
// every message.
func (s *Service) List(ctx context.Context, category string) ([]model.Message, error) {
	return s.messages.ListMessages(ctx, model.Category(strings.ToLower(strings.TrimSpace(category))))
}

func (s *Service) Get(ctx context.Context, id int64) (model.Message, error) {
	return s.messages.GetMessage(ctx, id)
}

// Counts reports every configured category, including empty ones, and the
// "all" total.
func (s *Service) Counts(ctx context.Context) (model.Counts, error) {
	stored, err := s.messages.CountsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(model.Counts, len(s.categories)+1)
	for _, c := range s.categories {
		counts[c] = 0
	}
	for c, n := range stored {
		counts[c] = n
	}
	if _, ok := counts[model.CategoryAll]; !ok {
		counts[model.CategoryAll] = 0
	}
	return counts, nil
}

type LikeEvent struct {
	ID    int64 `json:"id"`
	Likes int   `json:"likes"`
}

func (s *Service) Like(ctx context.Context, id int64) (int, error) {
	n, err := s.messages.Like(ctx, id)
	if err != nil {
		return 0, err
	}
	s.notify.Publish(live.EventMessageLiked, LikeEvent{ID: id, Likes: n})
	return n, nil
}

func (s *Service) Unlike(ctx context.Context, id int64) (int, error) {
	n, err := s.messages.Unlike(ctx, id)
	if err != nil {
		return 0, err
	}
	s.notify.Publish(live.EventMessageLiked, LikeEvent{ID: id, Likes: n})
	return n, nil
}

type ReportEvent struct {
	ID      int64 `json:"id"`
	Reports int   `json:"reports"`
}

// Report attaches a report to message id and returns its report count.
func (s *Service) Report(ctx context.Context, id int64, reason string) (int, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultReportReason
	}
	n, err := s.messages.AddReport(ctx, id, model.Report{Reason: reason, Timestamp: s.now().UTC()})
	if err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Info().Int64("id", id).Int("reports", n).Msg("message reported")
	s.notify.Publish(live.EventMessageReported, ReportEvent{ID: id, Reports: n})
	return n, nil
}

type DeleteEvent struct {
	ID int64 `json:"id"`
}

// Delete removes a message for an authorized admin. The guard runs before
// the store is touched.
func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	if err := s.guard.Authorize(ctx, token); err != nil {
		return err
	}
	if err := s.messages.DeleteMessage(ctx, id); err != nil {
		return err
	}
	metrics.MessagesStored.Dec()
	logging.Ctx(ctx).Info().Int64("id", id).Msg("message deleted by admin")
	s.notify.Publish(live.EventMessageDeleted, DeleteEvent{ID: id})
	return nil
}

// Reports lists reported messages for an authorized admin.
func (s *Service) Reports(ctx context.Context, token string) ([]model.ReportedMessage, error) {
	if err := s.guard.Authorize(ctx, token); err != nil {
		return nil, err
	}
	return s.messages.ListReported(ctx)
}
