// Package memory is the default Store: plain slices and maps behind a mutex.
package memory

import (
	"context"
	"sync"

	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	messages []model.Message // newest first
	likes    map[int64]int
	reports  map[int64][]model.Report
	sessions map[string]struct{}
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		likes:    make(map[int64]int),
		reports:  make(map[int64][]model.Report),
		sessions: make(map[string]struct{}),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) indexOf(id int64) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func matches(msg model.Message, category model.Category) bool {
	return category == "" || category == model.CategoryAll || msg.Category == category
}

func (s *Store) ListMessages(_ context.Context, category model.Category) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if matches(msg, category) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *Store) GetMessage(_ context.Context, id int64) (model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Message{}, store.ErrNotFound
	}
	return s.messages[i], nil
}

func (s *Store) InsertMessage(_ context.Context, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(msg.ID) >= 0 {
		return store.ErrDuplicateID
	}
	if msg.Likes < 0 {
		msg.Likes = 0
	}
	s.messages = append(s.messages, model.Message{})
	copy(s.messages[1:], s.messages)
	s.messages[0] = msg
	s.likes[msg.ID] = msg.Likes
	return nil
}

func (s *Store) DeleteMessage(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return store.ErrNotFound
	}
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	delete(s.likes, id)
	delete(s.reports, id)
	return nil
}

func (s *Store) Like(_ context.Context, id int64) (int, error) {
	return s.adjustLikes(id, 1)
}

func (s *Store) Unlike(_ context.Context, id int64) (int, error) {
	return s.adjustLikes(id, -1)
}

func (s *Store) adjustLikes(id int64, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return 0, store.ErrNotFound
	}
	n := s.likes[id] + delta
	if n < 0 {
		n = 0
	}
	s.likes[id] = n
	s.messages[i].Likes = n
	return n, nil
}

func (s *Store) AddReport(_ context.Context, id int64, report model.Report) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return 0, store.ErrNotFound
	}
	s.reports[id] = append(s.reports[id], report)
	return len(s.reports[id]), nil
}

func (s *Store) CountsByCategory(_ context.Context) (model.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := model.Counts{model.CategoryAll: len(s.messages)}
	for _, msg := range s.messages {
		counts[msg.Category]++
	}
	return counts, nil
}

func (s *Store) ListReported(_ context.Context) ([]model.ReportedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ReportedMessage, 0)
	for _, msg := range s.messages {
		reports := s.reports[msg.ID]
		if len(reports) == 0 {
			continue
		}
		out = append(out, model.ReportedMessage{
			Message: msg,
			Reports: append([]model.Report(nil), reports...),
		})
	}
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = struct{}{}
	return nil
}

func (s *Store) SessionExists(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[token]
	return ok, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) CountSessions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}
