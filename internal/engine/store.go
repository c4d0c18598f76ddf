package engine

import (
	"strings"
	"sync"
	"time"
)

// historyCap bounds per-user search history, newest first.
const historyCap = 20

// HistoryEntry is one remembered search.
type HistoryEntry struct {
	Username string
	At       time.Time
}

// UserStore holds the per-user conversational state: search history,
// favorites, and language preference. Process-lifetime only; advisory
// data, last write wins.
type UserStore struct {
	mu        sync.Mutex
	history   map[int64][]HistoryEntry
	favorites map[int64][]string
	langs     map[int64]string
	now       func() time.Time
}

// NewUserStore creates an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		history:   make(map[int64][]HistoryEntry),
		favorites: make(map[int64][]string),
		langs:     make(map[int64]string),
		now:       time.Now,
	}
}

// AddHistory records a search at the head of the user's history,
// trimming to the cap.
func (s *UserStore) AddHistory(userID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append([]HistoryEntry{{Username: username, At: s.now()}}, s.history[userID]...)
	if len(h) > historyCap {
		h = h[:historyCap]
	}
	s.history[userID] = h
}

// History returns up to limit entries, newest first.
func (s *UserStore) History(userID int64, limit int) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[userID]
	if limit > 0 && len(h) > limit {
		h = h[:limit]
	}
	out := make([]HistoryEntry, len(h))
	copy(out, h)
	return out
}

// AddFavorite appends a username to the user's favorites. Membership is
// case-insensitive; returns false when already present.
func (s *UserStore) AddFavorite(userID int64, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.favorites[userID] {
		if strings.EqualFold(f, username) {
			return false
		}
	}
	s.favorites[userID] = append(s.favorites[userID], username)
	return true
}

// RemoveFavorite deletes a username from the user's favorites,
// case-insensitively.
func (s *UserStore) RemoveFavorite(userID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.favorites[userID][:0]
	for _, f := range s.favorites[userID] {
		if !strings.EqualFold(f, username) {
			kept = append(kept, f)
		}
	}
	s.favorites[userID] = kept
}

// Favorites returns a copy of the user's favorites in insertion order.
func (s *UserStore) Favorites(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.favorites[userID]))
	copy(out, s.favorites[userID])
	return out
}

// SetLang stores the user's language preference.
func (s *UserStore) SetLang(userID int64, lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs[userID] = lang
}

// Lang returns the user's language preference, or fallback when unset.
func (s *UserStore) Lang(userID int64, fallbackLang string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.langs[userID]; ok {
		return l
	}
	return fallbackLang
}
