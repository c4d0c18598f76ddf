package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// FindYtdlp reports the path of the yt-dlp binary, or "" when it is not
// installed. The extractor strategy is simply absent from the chain in
// that case; the remaining strategies cover the gap.
func FindYtdlp() string {
	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		return ""
	}
	return path
}

// ytdlpInfo is the subset of `yt-dlp -J` output we read.
type ytdlpInfo struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail"`
	Formats   []struct {
		URL string `json:"url"`
	} `json:"formats"`
}

// ytdlpStrategy shells out to yt-dlp for extraction. Most reliable
// metadata when available, so it goes first in the chain.
type ytdlpStrategy struct {
	path string
}

func (s *ytdlpStrategy) Name() string { return "ytdlp" }

func (s *ytdlpStrategy) Resolve(ctx context.Context, videoURL string) (VideoRecord, error) {
	cmd := exec.CommandContext(ctx, s.path,
		"--no-warnings", "--skip-download", "--no-playlist", "-J", videoURL)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return VideoRecord{}, fmt.Errorf("yt-dlp: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		return VideoRecord{}, fmt.Errorf("yt-dlp output: %w", err)
	}

	media := info.URL
	if media == "" {
		// Last listed format is the best one yt-dlp picked.
		for i := len(info.Formats) - 1; i >= 0; i-- {
			if info.Formats[i].URL != "" {
				media = info.Formats[i].URL
				break
			}
		}
	}
	if media == "" {
		return VideoRecord{}, fmt.Errorf("yt-dlp: no playable format")
	}

	return VideoRecord{
		MediaURL:        media,
		Title:           info.Title,
		AuthorHandle:    info.Uploader,
		DurationSeconds: info.Duration,
		CoverURL:        info.Thumbnail,
	}, nil
}
