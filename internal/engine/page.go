package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var (
	ssrTagOpen  = []byte(`<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__"`)
	ssrTagClose = []byte(`</script>`)
	tagEnd      = []byte(`>`)
)

// universalData mirrors the JSON TikTok embeds in its server-rendered
// HTML. Only the scopes we read are declared.
type universalData struct {
	DefaultScope defaultScope `json:"__DEFAULT_SCOPE__"`
}

type defaultScope struct {
	UserDetail  userDetailWrapper  `json:"webapp.user-detail"`
	VideoDetail videoDetailWrapper `json:"webapp.video-detail"`
}

type userDetailWrapper struct {
	UserInfo   *UserPayload `json:"userInfo"`
	StatusCode int          `json:"statusCode"`
}

type videoDetailWrapper struct {
	ItemInfo struct {
		ItemStruct rawItem `json:"itemStruct"`
	} `json:"itemInfo"`
}

// UserPayload is the upstream user+stats pair before normalization.
// The sub-objects stay opaque here so the record can retain them
// verbatim for raw export.
type UserPayload struct {
	User  json.RawMessage `json:"user"`
	Stats json.RawMessage `json:"stats"`
}

// rawUser matches TikTok's user JSON exactly.
type rawUser struct {
	ID             string          `json:"id"`
	UniqueID       string          `json:"uniqueId"`
	Nickname       string          `json:"nickname"`
	Signature      string          `json:"signature"`
	AvatarLarger   string          `json:"avatarLarger"`
	Verified       bool            `json:"verified"`
	PrivateAccount bool            `json:"privateAccount"`
	CreateTime     int64           `json:"createTime"`
	Region         string          `json:"region"`
	Language       string          `json:"language"`
	BioLink        json.RawMessage `json:"bioLink"`
}

// rawStats matches TikTok's stats JSON exactly.
type rawStats struct {
	FollowerCount  int64 `json:"followerCount"`
	FollowingCount int64 `json:"followingCount"`
	HeartCount     int64 `json:"heartCount"`
	VideoCount     int64 `json:"videoCount"`
	FriendCount    int64 `json:"friendCount"`
	DiggCount      int64 `json:"diggCount"`
}

type rawItem struct {
	Desc   string        `json:"desc"`
	Author rawItemAuthor `json:"author"`
	Video  rawItemVideo  `json:"video"`
	Music  rawItemMusic  `json:"music"`
}

type rawItemAuthor struct {
	UniqueID string `json:"uniqueId"`
}

type rawItemVideo struct {
	DownloadAddr string `json:"downloadAddr"`
	PlayAddr     string `json:"playAddr"`
	Duration     int    `json:"duration"`
	Cover        string `json:"cover"`
}

type rawItemMusic struct {
	PlayURL string `json:"playUrl"`
}

// extractUniversalData finds and parses the __UNIVERSAL_DATA_FOR_REHYDRATION__
// JSON embedded in TikTok's server-rendered HTML.
func extractUniversalData(htmlBody []byte) (universalData, error) {
	start := bytes.Index(htmlBody, ssrTagOpen)
	if start == -1 {
		return universalData{}, fmt.Errorf("rehydration script tag not found")
	}
	rest := htmlBody[start:]

	open := bytes.Index(rest, tagEnd)
	if open == -1 {
		return universalData{}, fmt.Errorf("malformed rehydration script tag")
	}
	rest = rest[open+1:]

	end := bytes.Index(rest, ssrTagClose)
	if end == -1 {
		return universalData{}, fmt.Errorf("closing script tag not found")
	}

	var data universalData
	if err := json.Unmarshal(rest[:end], &data); err != nil {
		return universalData{}, fmt.Errorf("unmarshal ssr data: %w", err)
	}
	return data, nil
}

// userFromPage pulls the user payload out of a profile page, verifying
// the embedded status field.
func userFromPage(htmlBody []byte) (*UserPayload, error) {
	data, err := extractUniversalData(htmlBody)
	if err != nil {
		return nil, err
	}
	detail := data.DefaultScope.UserDetail
	if detail.UserInfo == nil || detail.StatusCode != 0 {
		return nil, fmt.Errorf("user data missing in ssr response (status %d)", detail.StatusCode)
	}
	if len(detail.UserInfo.User) == 0 {
		return nil, fmt.Errorf("user object missing in ssr response")
	}
	return detail.UserInfo, nil
}

// videoFromPage pulls the video item out of a video page.
func videoFromPage(htmlBody []byte) (rawItem, error) {
	data, err := extractUniversalData(htmlBody)
	if err != nil {
		return rawItem{}, err
	}
	item := data.DefaultScope.VideoDetail.ItemInfo.ItemStruct
	if item.Video.DownloadAddr == "" && item.Video.PlayAddr == "" {
		return rawItem{}, fmt.Errorf("video addresses missing in ssr response")
	}
	return item, nil
}
