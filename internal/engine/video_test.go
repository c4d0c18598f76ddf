package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// countingVideoStrategy records invocations for chain-order tests.
type countingVideoStrategy struct {
	name  string
	calls int
	rec   VideoRecord
	err   error
}

func (s *countingVideoStrategy) Name() string { return s.name }

func (s *countingVideoStrategy) Resolve(ctx context.Context, videoURL string) (VideoRecord, error) {
	s.calls++
	return s.rec, s.err
}

func TestVideoResolveFirstSuccessWins(t *testing.T) {
	initTestEngine(t)

	first := &countingVideoStrategy{name: "first", rec: VideoRecord{MediaURL: "https://cdn/a.mp4"}}
	second := &countingVideoStrategy{name: "second", rec: VideoRecord{MediaURL: "https://cdn/b.mp4"}}
	third := &countingVideoStrategy{name: "third"}
	r := NewVideoResolverWith(Cfg.HTTPClient, first, second, third)

	rec, err := r.Resolve(context.Background(), "https://www.tiktok.com/@x/video/1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.MediaURL != "https://cdn/a.mp4" {
		t.Errorf("MediaURL = %q, want first strategy's", rec.MediaURL)
	}
	if second.calls != 0 || third.calls != 0 {
		t.Errorf("later strategies invoked after success: second=%d third=%d", second.calls, third.calls)
	}
}

func TestVideoResolveFallsThroughFailures(t *testing.T) {
	initTestEngine(t)

	first := &countingVideoStrategy{name: "first", err: errors.New("extractor missing")}
	second := &countingVideoStrategy{name: "second", rec: VideoRecord{MediaURL: "https://cdn/b.mp4"}}
	r := NewVideoResolverWith(Cfg.HTTPClient, first, second)

	rec, err := r.Resolve(context.Background(), "https://www.tiktok.com/@x/video/1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.MediaURL != "https://cdn/b.mp4" {
		t.Errorf("MediaURL = %q, want fallback strategy's", rec.MediaURL)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestVideoResolveEmptyMediaURLIsFailure(t *testing.T) {
	initTestEngine(t)

	// A strategy returning no error but an empty MediaURL must not be
	// treated as success.
	empty := &countingVideoStrategy{name: "empty", rec: VideoRecord{Title: "has metadata only"}}
	good := &countingVideoStrategy{name: "good", rec: VideoRecord{MediaURL: "https://cdn/ok.mp4"}}
	r := NewVideoResolverWith(Cfg.HTTPClient, empty, good)

	rec, err := r.Resolve(context.Background(), "https://www.tiktok.com/@x/video/1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.MediaURL != "https://cdn/ok.mp4" {
		t.Errorf("MediaURL = %q, want the fallback's", rec.MediaURL)
	}
}

func TestVideoResolveExhaustion(t *testing.T) {
	initTestEngine(t)

	a := &countingVideoStrategy{name: "a", err: errors.New("blocked")}
	b := &countingVideoStrategy{name: "b", err: errors.New("code -1")}
	r := NewVideoResolverWith(Cfg.HTTPClient, a, b)

	_, err := r.Resolve(context.Background(), "https://www.tiktok.com/@x/video/1")
	if !errors.Is(err, ErrVideoUnavailable) {
		t.Fatalf("err = %v, want ErrVideoUnavailable", err)
	}
}

func TestVideoResolveEmptyURL(t *testing.T) {
	initTestEngine(t)

	r := NewVideoResolverWith(Cfg.HTTPClient)
	_, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestResolveShortLinkFollowsRedirect(t *testing.T) {
	var canonical string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			http.Redirect(w, r, canonical, http.StatusMovedPermanently)
		case "/@someone/video/7001":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	canonical = srv.URL + "/@someone/video/7001"

	Init(Config{
		FetchTimeout:     5 * time.Second,
		ShortLinkTimeout: 2 * time.Second,
		HTTPClient:       srv.Client(),
	})

	var got string
	r := NewVideoResolverWith(srv.Client(), &captureStrategy{out: &got})

	// The short-link detection is a substring match on the hop domains,
	// so point it at the test server via the query string.
	_, err := r.Resolve(context.Background(), srv.URL+"/short?vm.tiktok.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != canonical {
		t.Errorf("strategy received %q, want canonical %q", got, canonical)
	}
}

type captureStrategy struct {
	out *string
}

func (s *captureStrategy) Name() string { return "capture" }

func (s *captureStrategy) Resolve(ctx context.Context, videoURL string) (VideoRecord, error) {
	*s.out = videoURL
	return VideoRecord{MediaURL: "https://cdn/x.mp4"}, nil
}

func TestTikwmVideoStrategyPrefersHD(t *testing.T) {
	initTestEngine(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.FormValue("hd"); got != "1" {
			t.Errorf("hd = %q, want 1", got)
		}
		fmt.Fprint(w, `{"code":0,"data":{"play":"https://cdn/sd.mp4","hdplay":"https://cdn/hd.mp4",
			"music":"https://cdn/a.mp3","title":"clip","duration":14,
			"author":{"unique_id":"someone"}}}`)
	}))
	defer srv.Close()

	s := &tikwmVideoStrategy{client: srv.Client(), apiURL: srv.URL}
	rec, err := s.Resolve(context.Background(), "https://www.tiktok.com/@someone/video/7001")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.MediaURL != "https://cdn/hd.mp4" {
		t.Errorf("MediaURL = %q, want hdplay", rec.MediaURL)
	}
	if rec.AudioURL != "https://cdn/a.mp3" || rec.AuthorHandle != "someone" || rec.DurationSeconds != 14 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestPageVideoStrategy(t *testing.T) {
	initTestEngine(t)

	scope := `{"__DEFAULT_SCOPE__":{"webapp.video-detail":{"itemInfo":{"itemStruct":{
		"desc":"a clip","author":{"uniqueId":"someone"},
		"video":{"downloadAddr":"https://cdn/dl.mp4","playAddr":"https://cdn/play.mp4","duration":9,"cover":"https://cdn/c.jpg"},
		"music":{"playUrl":"https://cdn/a.mp3"}}}}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profilePageHTML(scope))
	}))
	defer srv.Close()

	s := &pageVideoStrategy{fetcher: NewHTTPFetcher(srv.Client())}
	rec, err := s.Resolve(context.Background(), srv.URL+"/@someone/video/7001")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.MediaURL != "https://cdn/dl.mp4" {
		t.Errorf("MediaURL = %q, downloadAddr should win over playAddr", rec.MediaURL)
	}
	if rec.Title != "a clip" || rec.AuthorHandle != "someone" {
		t.Errorf("unexpected record: %+v", rec)
	}
}
