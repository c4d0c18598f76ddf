package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// ProfileStrategy is one concrete way of obtaining an upstream user
// payload. Strategies are supplied to the resolver in priority order;
// the resolver owns the fallback loop, not the strategies.
type ProfileStrategy interface {
	Name() string
	Fetch(ctx context.Context, target string) (*UserPayload, error)
}

// ProfileResolver tries ordered fetch strategies and normalizes the
// first successful result into a canonical ProfileRecord.
type ProfileResolver struct {
	byName []ProfileStrategy
	byID   []ProfileStrategy
}

// NewProfileResolver builds a resolver from the engine config: page
// scrape for username lookups; the numeric-id API first for ID lookups,
// then the id-as-username scrape heuristic.
func NewProfileResolver() *ProfileResolver {
	page := &pageProfileStrategy{fetcher: pageFetcher(), baseURL: cfg.BaseURL}
	api := &tikwmProfileStrategy{client: cfg.HTTPClient, apiURL: cfg.TikwmURL}
	return &ProfileResolver{
		byName: []ProfileStrategy{page},
		byID:   []ProfileStrategy{api, page},
	}
}

// NewProfileResolverWith builds a resolver over explicit strategy
// chains. Tests and alternative wirings use this.
func NewProfileResolverWith(byName, byID []ProfileStrategy) *ProfileResolver {
	return &ProfileResolver{byName: byName, byID: byID}
}

// pageFetcher picks the browser-fingerprint client when configured,
// otherwise the plain retrying client.
func pageFetcher() PageFetcher {
	if cfg.BrowserClient != nil {
		return cfg.BrowserClient
	}
	return NewHTTPFetcher(cfg.HTTPClient)
}

var profileURLPattern = regexp.MustCompile(`tiktok\.com/@([^/?#]+)`)

// NormalizeUsername cleans raw user input into a bare username.
// Accepts "@name", "name/", and full profile URLs; a URL with no
// extractable username is ErrInvalidInput.
func NormalizeUsername(input string) (string, error) {
	name := strings.TrimSpace(input)
	name = strings.TrimPrefix(name, "@")
	name = strings.TrimRight(name, "/")

	if strings.Contains(name, "tiktok.com") {
		m := profileURLPattern.FindStringSubmatch(name)
		if m == nil {
			return "", fmt.Errorf("%w: no username in profile URL", ErrInvalidInput)
		}
		name = m[1]
	}

	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return "", fmt.Errorf("%w: empty username", ErrInvalidInput)
	}
	return name, nil
}

// ByUsername resolves a profile by username or profile URL.
func (r *ProfileResolver) ByUsername(ctx context.Context, input string) (ProfileRecord, error) {
	name, err := NormalizeUsername(input)
	if err != nil {
		return ProfileRecord{}, err
	}
	IncrProfileLookups()
	return runProfileChain(ctx, r.byName, name)
}

// ByID resolves a profile by its stable numeric identifier. The scrape
// fallback treats the id as a username, which the upstream sometimes
// accepts; best effort, not a guarantee.
func (r *ProfileResolver) ByID(ctx context.Context, input string) (ProfileRecord, error) {
	id := strings.TrimSpace(input)
	if id == "" {
		return ProfileRecord{}, fmt.Errorf("%w: empty identifier", ErrInvalidInput)
	}
	IncrProfileLookups()
	return runProfileChain(ctx, r.byID, id)
}

// runProfileChain walks the strategies in order, folding every failure
// into the next attempt. First success wins; exhaustion is ErrNotFound.
func runProfileChain(ctx context.Context, strategies []ProfileStrategy, target string) (ProfileRecord, error) {
	for _, s := range strategies {
		sctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		payload, err := s.Fetch(sctx, target)
		cancel()
		if err != nil {
			IncrStrategyFailures()
			slog.Warn("profile: strategy failed",
				slog.String("strategy", s.Name()),
				slog.String("target", target),
				slog.Any("error", err))
			continue
		}
		return BuildProfileRecord(payload), nil
	}
	return ProfileRecord{}, ErrNotFound
}

// --- page scrape strategy ---

type pageProfileStrategy struct {
	fetcher PageFetcher
	baseURL string
}

func (s *pageProfileStrategy) Name() string { return "page" }

func (s *pageProfileStrategy) Fetch(ctx context.Context, target string) (*UserPayload, error) {
	body, status, err := s.fetcher.Get(ctx, s.baseURL+"/@"+url.PathEscape(target))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("status %d", status)
	}
	return userFromPage(body)
}

// --- aggregation API strategy ---

// tikwmUserResponse is the user/info envelope: code 0 means success.
type tikwmUserResponse struct {
	Code int          `json:"code"`
	Data *UserPayload `json:"data"`
}

type tikwmProfileStrategy struct {
	client *http.Client
	apiURL string
}

func (s *tikwmProfileStrategy) Name() string { return "tikwm" }

func (s *tikwmProfileStrategy) Fetch(ctx context.Context, target string) (*UserPayload, error) {
	body, err := postForm(ctx, s.client, s.apiURL+"/user/info", url.Values{"user_id": {target}})
	if err != nil {
		return nil, err
	}

	var resp tikwmUserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode user/info: %w", err)
	}
	if resp.Code != 0 || resp.Data == nil || len(resp.Data.User) == 0 {
		return nil, fmt.Errorf("user/info returned code %d", resp.Code)
	}
	return resp.Data, nil
}
