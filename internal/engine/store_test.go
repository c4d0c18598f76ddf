package engine

import (
	"fmt"
	"testing"
	"time"
)

func TestHistoryNewestFirstAndCapped(t *testing.T) {
	s := NewUserStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	s.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	}

	for n := 0; n < historyCap+5; n++ {
		s.AddHistory(1, fmt.Sprintf("user%d", n))
	}

	h := s.History(1, 0)
	if len(h) != historyCap {
		t.Fatalf("len(history) = %d, want %d", len(h), historyCap)
	}
	if h[0].Username != fmt.Sprintf("user%d", historyCap+4) {
		t.Errorf("head = %q, want most recent search", h[0].Username)
	}
	if !h[0].At.After(h[1].At) {
		t.Error("history not ordered newest first")
	}

	if got := s.History(1, 3); len(got) != 3 {
		t.Errorf("History(limit=3) returned %d entries", len(got))
	}
}

func TestHistoryIsolatedPerUser(t *testing.T) {
	s := NewUserStore()
	s.AddHistory(1, "alpha")
	if h := s.History(2, 0); len(h) != 0 {
		t.Errorf("user 2 history = %v, want empty", h)
	}
}

func TestFavoritesCaseInsensitiveDedupe(t *testing.T) {
	s := NewUserStore()

	if !s.AddFavorite(1, "Someone") {
		t.Fatal("first add should succeed")
	}
	if s.AddFavorite(1, "someone") {
		t.Fatal("case-variant duplicate should be rejected")
	}
	if got := s.Favorites(1); len(got) != 1 || got[0] != "Someone" {
		t.Errorf("favorites = %v", got)
	}

	s.RemoveFavorite(1, "SOMEONE")
	if got := s.Favorites(1); len(got) != 0 {
		t.Errorf("favorites after remove = %v, want empty", got)
	}
}

func TestFavoritesInsertionOrder(t *testing.T) {
	s := NewUserStore()
	for _, u := range []string{"c", "a", "b"} {
		s.AddFavorite(1, u)
	}
	got := s.Favorites(1)
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("favorites = %v, want %v", got, want)
		}
	}
}

func TestLangFallback(t *testing.T) {
	s := NewUserStore()
	if got := s.Lang(1, "ar"); got != "ar" {
		t.Errorf("Lang unset = %q, want fallback ar", got)
	}
	s.SetLang(1, "en")
	if got := s.Lang(1, "ar"); got != "en" {
		t.Errorf("Lang = %q, want en", got)
	}
	if got := s.Lang(2, "ar"); got != "ar" {
		t.Errorf("other user affected: %q", got)
	}
}
