package engine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Unknown is the display fallback for any field the upstream did not
// provide. Canonical records are always fully populated; downstream
// rendering never has to nil-check.
const Unknown = "unknown"

// ProfileRecord is the canonical profile shape every upstream variant is
// normalized into. Immutable once produced.
type ProfileRecord struct {
	Username   string `json:"username"`
	Nickname   string `json:"nickname"`
	PlatformID string `json:"platform_id"`
	Bio        string `json:"bio"`
	Verified   bool   `json:"verified"`
	Private    bool   `json:"private"`

	Followers string `json:"followers"`
	Following string `json:"following"`
	Likes     string `json:"likes"`
	Videos    string `json:"videos"`
	Friends   string `json:"friends"`
	Digg      string `json:"digg"`

	Created  string `json:"created"`
	Region   string `json:"region"`
	Language string `json:"language"`
	BioLink  string `json:"bio_link"`

	AvatarURL  string `json:"avatar_url"`
	ProfileURL string `json:"profile_url"`

	// Retained verbatim for on-demand raw export; never interpreted.
	RawUser  json.RawMessage `json:"-"`
	RawStats json.RawMessage `json:"-"`
}

// VideoRecord is the canonical video shape. MediaURL is required; a
// payload without one is a strategy failure, not a record.
type VideoRecord struct {
	MediaURL        string `json:"media_url"`
	AudioURL        string `json:"audio_url,omitempty"`
	Title           string `json:"title"`
	AuthorHandle    string `json:"author_handle"`
	DurationSeconds int    `json:"duration_seconds"`
	CoverURL        string `json:"cover_url"`
}

// BuildProfileRecord normalizes an upstream user+stats payload into the
// canonical record. Pure: identical payloads produce identical records.
func BuildProfileRecord(p *UserPayload) ProfileRecord {
	var user rawUser
	var stats rawStats
	// Decode errors leave zero values; every field below has a fallback.
	_ = json.Unmarshal(p.User, &user)
	_ = json.Unmarshal(p.Stats, &stats)

	rec := ProfileRecord{
		Username:   fallback(user.UniqueID),
		Nickname:   fallback(user.Nickname),
		PlatformID: fallback(user.ID),
		Bio:        fallback(user.Signature),
		Verified:   user.Verified,
		Private:    user.PrivateAccount,

		Followers: FormatCount(stats.FollowerCount),
		Following: FormatCount(stats.FollowingCount),
		Likes:     FormatCount(stats.HeartCount),
		Videos:    FormatCount(stats.VideoCount),
		Friends:   FormatCount(stats.FriendCount),
		Digg:      FormatCount(stats.DiggCount),

		Created:  ResolveTimestamp(user.CreateTime),
		Region:   ResolveRegion(user.Region),
		Language: ResolveLanguage(user.Language),
		BioLink:  ExtractBioLink(user.BioLink),

		AvatarURL: user.AvatarLarger,

		RawUser:  p.User,
		RawStats: p.Stats,
	}
	if user.UniqueID != "" {
		rec.ProfileURL = "https://www.tiktok.com/@" + user.UniqueID
	} else {
		rec.ProfileURL = Unknown
	}
	return rec
}

func fallback(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// FormatCount renders an integer with thousands-grouping. Non-numeric
// input passes through as its string form unchanged.
func FormatCount(v any) string {
	switch n := v.(type) {
	case int:
		return humanize.Comma(int64(n))
	case int64:
		return humanize.Comma(n)
	case float64:
		return humanize.Comma(int64(n))
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return humanize.Comma(i)
		}
		return n
	default:
		return Unknown
	}
}

// ResolveTimestamp converts epoch seconds to an absolute UTC display
// form. Zero, negative, or out-of-range values map to "unknown".
func ResolveTimestamp(epoch int64) string {
	if epoch <= 0 {
		return Unknown
	}
	t := time.Unix(epoch, 0).UTC()
	if t.Year() < 2000 || t.Year() > 2100 {
		return Unknown
	}
	return t.Format("02 Jan 2006 15:04 UTC")
}

// regionLabels maps ISO country codes to display labels.
var regionLabels = map[string]string{
	"US": "United States 🇺🇸", "GB": "United Kingdom 🇬🇧",
	"CA": "Canada 🇨🇦", "AU": "Australia 🇦🇺",
	"DE": "Germany 🇩🇪", "FR": "France 🇫🇷",
	"SA": "Saudi Arabia 🇸🇦", "AE": "UAE 🇦🇪",
	"EG": "Egypt 🇪🇬", "KW": "Kuwait 🇰🇼",
	"QA": "Qatar 🇶🇦", "BH": "Bahrain 🇧🇭",
	"OM": "Oman 🇴🇲", "JO": "Jordan 🇯🇴",
	"IQ": "Iraq 🇮🇶", "LB": "Lebanon 🇱🇧",
	"MA": "Morocco 🇲🇦", "DZ": "Algeria 🇩🇿",
	"TN": "Tunisia 🇹🇳", "LY": "Libya 🇱🇾",
	"SD": "Sudan 🇸🇩", "YE": "Yemen 🇾🇪",
	"PS": "Palestine 🇵🇸", "SY": "Syria 🇸🇾",
	"TR": "Turkey 🇹🇷", "IN": "India 🇮🇳",
	"BR": "Brazil 🇧🇷", "MX": "Mexico 🇲🇽",
	"JP": "Japan 🇯🇵", "KR": "South Korea 🇰🇷",
	"ID": "Indonesia 🇮🇩", "PH": "Philippines 🇵🇭",
	"TH": "Thailand 🇹🇭", "VN": "Vietnam 🇻🇳",
	"MY": "Malaysia 🇲🇾", "PK": "Pakistan 🇵🇰",
	"RU": "Russia 🇷🇺", "IT": "Italy 🇮🇹",
	"ES": "Spain 🇪🇸", "NL": "Netherlands 🇳🇱",
	"PL": "Poland 🇵🇱", "SE": "Sweden 🇸🇪",
	"NG": "Nigeria 🇳🇬", "ZA": "South Africa 🇿🇦",
	"CO": "Colombia 🇨🇴", "AR": "Argentina 🇦🇷",
	"CL": "Chile 🇨🇱", "PE": "Peru 🇵🇪",
}

// ResolveRegion maps a country code to a display label. Unknown codes
// come back uppercased; an absent code maps to "unknown".
func ResolveRegion(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return Unknown
	}
	upper := strings.ToUpper(code)
	if label, ok := regionLabels[upper]; ok {
		return label
	}
	return upper
}

// languageNames maps language codes to readable names.
var languageNames = map[string]string{
	"en": "English 🇺🇸", "ar": "العربية 🇸🇦",
	"fr": "Français 🇫🇷", "de": "Deutsch 🇩🇪",
	"es": "Español 🇪🇸", "pt": "Português 🇧🇷",
	"ja": "日本語 🇯🇵", "ko": "한국어 🇰🇷",
	"zh": "中文 🇨🇳", "hi": "हिन्दी 🇮🇳",
	"tr": "Türkçe 🇹🇷", "ru": "Русский 🇷🇺",
	"id": "Bahasa Indonesia 🇮🇩", "th": "ไทย 🇹🇭",
	"vi": "Tiếng Việt 🇻🇳", "it": "Italiano 🇮🇹",
	"nl": "Nederlands 🇳🇱", "pl": "Polski 🇵🇱",
	"ms": "Bahasa Melayu 🇲🇾", "tl": "Filipino 🇵🇭",
	"ur": "اردو 🇵🇰", "fa": "فارسی 🇮🇷",
}

// ResolveLanguage maps a language code to a readable name. Unknown
// codes pass through unchanged; an absent code maps to "unknown".
func ResolveLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return Unknown
	}
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// ExtractBioLink normalizes the bio link field, which arrives either as
// a plain string or as an object with a "link" sub-field.
func ExtractBioLink(raw json.RawMessage) string {
	if len(raw) == 0 {
		return Unknown
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Link != "" {
		return obj.Link
	}
	return Unknown
}
