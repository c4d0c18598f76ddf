package botserver

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/anatolykoptev/go_tok/internal/engine"
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

// profileFields lists the rendered fields in display order: locale key
// plus value extractor. Verified/private map through the yes/no strings.
func profileFields(l *Locales, lang string, rec engine.ProfileRecord) []struct{ Label, Value string } {
	yesNo := func(b bool) string {
		if b {
			return l.T(lang, "yes")
		}
		return l.T(lang, "no")
	}
	return []struct{ Label, Value string }{
		{l.T(lang, "username"), rec.Username},
		{l.T(lang, "nickname"), rec.Nickname},
		{l.T(lang, "user_id_field"), rec.PlatformID},
		{l.T(lang, "bio"), rec.Bio},
		{l.T(lang, "followers"), rec.Followers},
		{l.T(lang, "following"), rec.Following},
		{l.T(lang, "likes"), rec.Likes},
		{l.T(lang, "videos"), rec.Videos},
		{l.T(lang, "friends"), rec.Friends},
		{l.T(lang, "digg"), rec.Digg},
		{l.T(lang, "verified"), yesNo(rec.Verified)},
		{l.T(lang, "private"), yesNo(rec.Private)},
		{l.T(lang, "created"), rec.Created},
		{l.T(lang, "region"), rec.Region},
		{l.T(lang, "language_field"), rec.Language},
		{l.T(lang, "bio_link_field"), rec.BioLink},
		{l.T(lang, "profile_link"), rec.ProfileURL},
	}
}

// renderProfile builds the MarkdownV2 account-details message.
func renderProfile(l *Locales, lang string, rec engine.ProfileRecord) string {
	var b strings.Builder
	b.WriteString(l.T(lang, "account_details"))
	for _, f := range profileFields(l, lang, rec) {
		fmt.Fprintf(&b, "*%s:* %s\n", esc(f.Label), esc(f.Value))
	}
	return b.String()
}

// compareField pairs a locale label with the values of both accounts.
type compareField struct {
	labelKey string
	pick     func(engine.ProfileRecord) string
}

var compareFields = []compareField{
	{"username", func(r engine.ProfileRecord) string { return r.Username }},
	{"nickname", func(r engine.ProfileRecord) string { return r.Nickname }},
	{"followers", func(r engine.ProfileRecord) string { return r.Followers }},
	{"following", func(r engine.ProfileRecord) string { return r.Following }},
	{"likes", func(r engine.ProfileRecord) string { return r.Likes }},
	{"videos", func(r engine.ProfileRecord) string { return r.Videos }},
	{"created", func(r engine.ProfileRecord) string { return r.Created }},
	{"region", func(r engine.ProfileRecord) string { return r.Region }},
	{"language_field", func(r engine.ProfileRecord) string { return r.Language }},
}

// renderCompare builds the side-by-side comparison message.
func renderCompare(l *Locales, lang string, a, b engine.ProfileRecord) string {
	yesNo := func(v bool) string {
		if v {
			return l.T(lang, "yes")
		}
		return l.T(lang, "no")
	}
	vs := esc(l.T(lang, "vs"))

	var sb strings.Builder
	sb.WriteString(l.T(lang, "compare_title"))
	for _, f := range compareFields {
		fmt.Fprintf(&sb, "*%s:*\n%s %s %s\n\n",
			esc(l.T(lang, f.labelKey)), esc(f.pick(a)), vs, esc(f.pick(b)))
	}
	fmt.Fprintf(&sb, "*%s:*\n%s %s %s\n\n",
		esc(l.T(lang, "verified")), esc(yesNo(a.Verified)), vs, esc(yesNo(b.Verified)))
	return sb.String()
}

// renderUserList builds the favorites/history text plus one search
// button per entry.
func renderUserList(title string, entries []string, suffixes []string) (string, tgbotapi.InlineKeyboardMarkup) {
	var b strings.Builder
	b.WriteString(title)
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, username := range entries {
		line := fmt.Sprintf("%d. @%s", i+1, username)
		if suffixes != nil && suffixes[i] != "" {
			line += " - " + suffixes[i]
		}
		b.WriteString(line + "\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 @"+username, "favsearch:"+username),
		))
	}
	return b.String(), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// profileKeyboard returns the refresh / raw export / add-favorite
// buttons attached to a rendered profile.
func profileKeyboard(l *Locales, lang, username string, withFav bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(l.T(lang, "refresh"), "refresh:username:"+username),
			tgbotapi.NewInlineKeyboardButtonData(l.T(lang, "raw_data"), "raw:username:"+username),
		),
	}
	if withFav {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(l.T(lang, "add_fav"), "addfav:"+username),
		))
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// langKeyboard offers the language choice buttons.
func langKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇸🇦 العربية", "lang:ar"),
			tgbotapi.NewInlineKeyboardButtonData("🇺🇸 English", "lang:en"),
		),
	)
}

// mainKeyboard is the action menu shown by /start.
func mainKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	label := func(ar, en string) string {
		if lang == "en" {
			return en
		}
		return ar
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 "+label("بحث", "Search"), "action:search"),
			tgbotapi.NewInlineKeyboardButtonData("🔢 ID", "action:id"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎥 "+label("فيديو", "Video"), "action:video"),
			tgbotapi.NewInlineKeyboardButtonData("⚖️ "+label("مقارنة", "Compare"), "action:compare"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ "+label("المفضلة", "Favorites"), "action:fav"),
			tgbotapi.NewInlineKeyboardButtonData("📜 "+label("السجل", "History"), "action:history"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 "+label("اللغة", "Language"), "action:lang"),
		),
	)
}
