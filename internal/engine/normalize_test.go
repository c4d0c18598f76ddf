package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"large int", 1234567, "1,234,567"},
		{"int64", int64(1234567), "1,234,567"},
		{"zero", int64(0), "0"},
		{"small", 999, "999"},
		{"numeric string", "42000", "42,000"},
		{"non-numeric string", "n/a", "n/a"},
		{"float from json", float64(1000), "1,000"},
		{"nil-ish", struct{}{}, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCount(tt.in); got != tt.want {
				t.Errorf("FormatCount(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveTimestamp(t *testing.T) {
	if got := ResolveTimestamp(0); got != Unknown {
		t.Errorf("ResolveTimestamp(0) = %q, want %q", got, Unknown)
	}
	if got := ResolveTimestamp(-5); got != Unknown {
		t.Errorf("ResolveTimestamp(-5) = %q, want %q", got, Unknown)
	}
	if got := ResolveTimestamp(1e15); got != Unknown {
		t.Errorf("ResolveTimestamp(1e15) = %q, want %q", got, Unknown)
	}
	// 2021-01-01 00:00:00 UTC
	if got := ResolveTimestamp(1609459200); got != "01 Jan 2021 00:00 UTC" {
		t.Errorf("ResolveTimestamp(1609459200) = %q", got)
	}
}

func TestResolveRegion(t *testing.T) {
	if got := ResolveRegion("SA"); !strings.Contains(got, "Saudi Arabia") {
		t.Errorf("ResolveRegion(SA) = %q, want label containing Saudi Arabia", got)
	}
	if got := ResolveRegion("sa"); !strings.Contains(got, "Saudi Arabia") {
		t.Errorf("ResolveRegion(sa) = %q, lookup should be case-insensitive", got)
	}
	if got := ResolveRegion("zz"); got != "ZZ" {
		t.Errorf("ResolveRegion(zz) = %q, want ZZ", got)
	}
	if got := ResolveRegion(""); got != Unknown {
		t.Errorf("ResolveRegion(\"\") = %q, want %q", got, Unknown)
	}
}

func TestResolveLanguage(t *testing.T) {
	if got := ResolveLanguage("en"); !strings.Contains(got, "English") {
		t.Errorf("ResolveLanguage(en) = %q", got)
	}
	if got := ResolveLanguage("xx"); got != "xx" {
		t.Errorf("ResolveLanguage(xx) = %q, unknown codes pass through unchanged", got)
	}
	if got := ResolveLanguage(""); got != Unknown {
		t.Errorf("ResolveLanguage(\"\") = %q, want %q", got, Unknown)
	}
}

func TestExtractBioLink(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"https://example.com"`, "https://example.com"},
		{"object form", `{"link":"https://example.com","risk":0}`, "https://example.com"},
		{"empty object", `{}`, Unknown},
		{"null", `null`, Unknown},
		{"absent", ``, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBioLink(json.RawMessage(tt.raw))
			if got != tt.want {
				t.Errorf("ExtractBioLink(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBuildProfileRecordFullyPopulated(t *testing.T) {
	payload := &UserPayload{
		User:  json.RawMessage(`{"createTime":0}`),
		Stats: json.RawMessage(`{"followerCount":0}`),
	}
	rec := BuildProfileRecord(payload)

	assert.Equal(t, "0", rec.Followers)
	assert.Equal(t, Unknown, rec.Created)
	assert.Equal(t, Unknown, rec.Region)
	assert.Equal(t, Unknown, rec.Language)
	assert.Equal(t, Unknown, rec.Username)
	assert.Equal(t, Unknown, rec.Bio)
	assert.Equal(t, Unknown, rec.BioLink)
}

func TestBuildProfileRecordDeterministic(t *testing.T) {
	payload := &UserPayload{
		User: json.RawMessage(`{"id":"6791","uniqueId":"someone","nickname":"Some One",
			"signature":"hi","verified":true,"createTime":1609459200,"region":"SA","language":"ar",
			"bioLink":{"link":"https://example.com"},"avatarLarger":"https://cdn/avatar.jpg"}`),
		Stats: json.RawMessage(`{"followerCount":1234567,"followingCount":10,"heartCount":99,
			"videoCount":3,"friendCount":2,"diggCount":1}`),
	}

	a := BuildProfileRecord(payload)
	b := BuildProfileRecord(payload)
	assert.Equal(t, a, b, "normalization must be pure and reproducible")

	assert.Equal(t, "someone", a.Username)
	assert.Equal(t, "6791", a.PlatformID)
	assert.Equal(t, "1,234,567", a.Followers)
	assert.Equal(t, "01 Jan 2021 00:00 UTC", a.Created)
	assert.Contains(t, a.Region, "Saudi Arabia")
	assert.Contains(t, a.Language, "العربية")
	assert.Equal(t, "https://example.com", a.BioLink)
	assert.Equal(t, "https://www.tiktok.com/@someone", a.ProfileURL)
	assert.True(t, a.Verified)
}
