package botserver

import (
	"strings"
	"testing"

	"github.com/anatolykoptev/go_tok/internal/engine"
)

func testRecord() engine.ProfileRecord {
	return engine.ProfileRecord{
		Username:   "someone",
		Nickname:   "Some One",
		PlatformID: "6791",
		Bio:        "hello_world",
		Followers:  "1,234,567",
		Following:  "10",
		Likes:      "99",
		Videos:     "3",
		Friends:    "2",
		Digg:       "1",
		Verified:   true,
		Created:    "01 Jan 2021 00:00 UTC",
		Region:     "🇸🇦 Saudi Arabia",
		Language:   "English",
		BioLink:    "https://example.com",
		ProfileURL: "https://www.tiktok.com/@someone",
	}
}

func TestRenderProfileEscapesMarkdown(t *testing.T) {
	loc, err := LoadLocales()
	if err != nil {
		t.Fatalf("LoadLocales: %v", err)
	}

	rec := testRecord()
	rec.Bio = "100% *real* [link](x)"
	out := renderProfile(loc, "en", rec)

	if !strings.Contains(out, `100% \*real\* \[link\]\(x\)`) {
		t.Errorf("markdown not escaped in bio:\n%s", out)
	}
	if !strings.Contains(out, "1,234,567") {
		t.Errorf("follower count missing:\n%s", out)
	}
	if !strings.Contains(out, "Yes") {
		t.Errorf("verified flag not rendered via locale:\n%s", out)
	}
}

func TestRenderProfileUsesArabicLabels(t *testing.T) {
	loc, err := LoadLocales()
	if err != nil {
		t.Fatalf("LoadLocales: %v", err)
	}

	out := renderProfile(loc, "ar", testRecord())
	if !strings.Contains(out, "المتابعون") {
		t.Errorf("arabic followers label missing:\n%s", out)
	}
}

func TestRenderCompareShowsBothAccounts(t *testing.T) {
	loc, err := LoadLocales()
	if err != nil {
		t.Fatalf("LoadLocales: %v", err)
	}

	a := testRecord()
	b := testRecord()
	b.Username = "other"
	b.Followers = "5"
	b.Verified = false

	out := renderCompare(loc, "en", a, b)
	if !strings.Contains(out, "someone") || !strings.Contains(out, "other") {
		t.Errorf("usernames missing:\n%s", out)
	}
	if !strings.Contains(out, "vs") {
		t.Errorf("separator missing:\n%s", out)
	}
	if !strings.Contains(out, "Yes") || !strings.Contains(out, "No") {
		t.Errorf("verified values missing:\n%s", out)
	}
}

func TestRenderUserListButtons(t *testing.T) {
	text, markup := renderUserList("title\n", []string{"a", "b"}, []string{"2025-06-01 12:00", ""})

	if !strings.Contains(text, "1. @a - 2025-06-01 12:00") {
		t.Errorf("entry with suffix missing:\n%s", text)
	}
	if !strings.Contains(text, "2. @b\n") {
		t.Errorf("entry without suffix malformed:\n%s", text)
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(markup.InlineKeyboard))
	}
	if got := markup.InlineKeyboard[0][0].CallbackData; got == nil || *got != "favsearch:a" {
		t.Errorf("callback data = %v, want favsearch:a", got)
	}
}

func TestProfileKeyboard(t *testing.T) {
	loc, err := LoadLocales()
	if err != nil {
		t.Fatalf("LoadLocales: %v", err)
	}

	markup := profileKeyboard(loc, "en", "someone", true)
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2 with favorite button", len(markup.InlineKeyboard))
	}
	if got := *markup.InlineKeyboard[0][0].CallbackData; got != "refresh:username:someone" {
		t.Errorf("refresh callback = %q", got)
	}
	if got := *markup.InlineKeyboard[1][0].CallbackData; got != "addfav:someone" {
		t.Errorf("addfav callback = %q", got)
	}

	markup = profileKeyboard(loc, "en", "someone", false)
	if len(markup.InlineKeyboard) != 1 {
		t.Fatalf("rows = %d, want 1 without favorite button", len(markup.InlineKeyboard))
	}
}
