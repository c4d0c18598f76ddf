package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// VideoStrategy is one concrete way of obtaining a watermark-free media
// URL. A strategy succeeds only if it yields a non-empty MediaURL;
// metadata is best effort.
type VideoStrategy interface {
	Name() string
	Resolve(ctx context.Context, videoURL string) (VideoRecord, error)
}

// VideoResolver tries ordered strategies against a video URL, resolving
// short links first.
type VideoResolver struct {
	strategies []VideoStrategy
	client     *http.Client
}

// NewVideoResolver builds the default chain from the engine config:
// yt-dlp extractor (when the binary is available), direct page scrape,
// then the aggregation API.
func NewVideoResolver() *VideoResolver {
	var chain []VideoStrategy
	if cfg.YtdlpPath != "" {
		chain = append(chain, &ytdlpStrategy{path: cfg.YtdlpPath})
	}
	chain = append(chain,
		&pageVideoStrategy{fetcher: pageFetcher()},
		&tikwmVideoStrategy{client: cfg.HTTPClient, apiURL: cfg.TikwmURL},
	)
	return &VideoResolver{strategies: chain, client: cfg.HTTPClient}
}

// NewVideoResolverWith builds a resolver over an explicit chain.
func NewVideoResolverWith(client *http.Client, strategies ...VideoStrategy) *VideoResolver {
	return &VideoResolver{strategies: strategies, client: client}
}

// Resolve obtains a watermark-free media URL for the given video URL.
// Every strategy failure folds into the next attempt; exhaustion is
// ErrVideoUnavailable.
func (r *VideoResolver) Resolve(ctx context.Context, videoURL string) (VideoRecord, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return VideoRecord{}, fmt.Errorf("%w: empty URL", ErrInvalidInput)
	}
	IncrVideoLookups()

	videoURL = r.resolveShortLink(ctx, videoURL)

	for _, s := range r.strategies {
		sctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
		rec, err := s.Resolve(sctx, videoURL)
		cancel()
		if err != nil {
			IncrStrategyFailures()
			slog.Warn("video: strategy failed",
				slog.String("strategy", s.Name()),
				slog.Any("error", err))
			continue
		}
		if rec.MediaURL == "" {
			IncrStrategyFailures()
			slog.Warn("video: strategy returned empty media url", slog.String("strategy", s.Name()))
			continue
		}
		return rec, nil
	}
	return VideoRecord{}, ErrVideoUnavailable
}

// resolveShortLink follows vm./vt.tiktok.com redirects to the canonical
// URL via a HEAD request. Failure here is non-fatal: the chain proceeds
// with the original URL.
func (r *VideoResolver) resolveShortLink(ctx context.Context, videoURL string) string {
	if !strings.Contains(videoURL, "vm.tiktok.com") && !strings.Contains(videoURL, "vt.tiktok.com") {
		return videoURL
	}

	hctx, cancel := context.WithTimeout(ctx, cfg.ShortLinkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodHead, videoURL, nil)
	if err != nil {
		return videoURL
	}
	for k, v := range browserHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Debug("video: short link resolution failed", slog.Any("error", err))
		return videoURL
	}
	resp.Body.Close()

	IncrShortLinkHops()
	return resp.Request.URL.String()
}

// --- page scrape strategy ---

type pageVideoStrategy struct {
	fetcher PageFetcher
}

func (s *pageVideoStrategy) Name() string { return "page" }

func (s *pageVideoStrategy) Resolve(ctx context.Context, videoURL string) (VideoRecord, error) {
	body, status, err := s.fetcher.Get(ctx, videoURL)
	if err != nil {
		return VideoRecord{}, err
	}
	if status != http.StatusOK {
		return VideoRecord{}, fmt.Errorf("status %d", status)
	}

	item, err := videoFromPage(body)
	if err != nil {
		return VideoRecord{}, err
	}

	media := item.Video.DownloadAddr
	if media == "" {
		media = item.Video.PlayAddr
	}
	return VideoRecord{
		MediaURL:        media,
		AudioURL:        item.Music.PlayURL,
		Title:           item.Desc,
		AuthorHandle:    item.Author.UniqueID,
		DurationSeconds: item.Video.Duration,
		CoverURL:        item.Video.Cover,
	}, nil
}

// --- aggregation API strategy ---

// tikwmVideoResponse is the tikwm download envelope; hdplay preferred
// over play.
type tikwmVideoResponse struct {
	Code int `json:"code"`
	Data *struct {
		Play     string `json:"play"`
		HDPlay   string `json:"hdplay"`
		Music    string `json:"music"`
		Title    string `json:"title"`
		Duration int    `json:"duration"`
		Cover    string `json:"cover"`
		Author   struct {
			UniqueID string `json:"unique_id"`
		} `json:"author"`
	} `json:"data"`
}

type tikwmVideoStrategy struct {
	client *http.Client
	apiURL string
}

func (s *tikwmVideoStrategy) Name() string { return "tikwm" }

func (s *tikwmVideoStrategy) Resolve(ctx context.Context, videoURL string) (VideoRecord, error) {
	body, err := postForm(ctx, s.client, s.apiURL+"/", url.Values{
		"url": {videoURL},
		"hd":  {"1"},
	})
	if err != nil {
		return VideoRecord{}, err
	}

	var resp tikwmVideoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return VideoRecord{}, fmt.Errorf("decode download response: %w", err)
	}
	if resp.Code != 0 || resp.Data == nil {
		return VideoRecord{}, fmt.Errorf("download API returned code %d", resp.Code)
	}

	media := resp.Data.HDPlay
	if media == "" {
		media = resp.Data.Play
	}
	return VideoRecord{
		MediaURL:        media,
		AudioURL:        resp.Data.Music,
		Title:           resp.Data.Title,
		AuthorHandle:    resp.Data.Author.UniqueID,
		DurationSeconds: resp.Data.Duration,
		CoverURL:        resp.Data.Cover,
	}, nil
}
