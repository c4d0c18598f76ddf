package botserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/anatolykoptev/go_tok/internal/engine"
)

// lookupTimeout bounds one full resolution including strategy
// fallbacks.
const lookupTimeout = 90 * time.Second

// Bot wires the Telegram update loop to the resolution engine. Each
// update is handled on its own goroutine; shared state lives in the
// limiter and store, which are safe for concurrent use.
type Bot struct {
	api      *tgbotapi.BotAPI
	loc      *Locales
	limiter  *engine.Limiter
	store    *engine.UserStore
	profiles *engine.ProfileResolver
	videos   *engine.VideoResolver

	mu      sync.Mutex
	pending map[int64]string // userID → awaited input kind
}

// New builds a Bot over an authorized API client.
func New(api *tgbotapi.BotAPI, loc *Locales, limiter *engine.Limiter, store *engine.UserStore,
	profiles *engine.ProfileResolver, videos *engine.VideoResolver) *Bot {
	return &Bot{
		api:      api,
		loc:      loc,
		limiter:  limiter,
		store:    store,
		profiles: profiles,
		videos:   videos,
		pending:  make(map[int64]string),
	}
}

// Run polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	slog.Info("bot: polling started", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bot: handler panic", slog.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, update.Message)
	}
}

// t translates for the given user, honoring their stored preference.
func (b *Bot) t(userID int64, key string, args ...Arg) string {
	return b.loc.T(b.store.Lang(userID, DefaultLang), key, args...)
}

func (b *Bot) lang(userID int64) string {
	return b.store.Lang(userID, DefaultLang)
}

func (b *Bot) send(c tgbotapi.Chattable) *tgbotapi.Message {
	msg, err := b.api.Send(c)
	if err != nil {
		slog.Warn("bot: send failed", slog.Any("error", err))
		return nil
	}
	return &msg
}

func (b *Bot) reply(chatID int64, text string) *tgbotapi.Message {
	return b.send(tgbotapi.NewMessage(chatID, text))
}

// editOrReply edits prev in place, falling back to a fresh message
// when prev never made it out.
func (b *Bot) editOrReply(chatID int64, prev *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if prev == nil {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		msg.DisableWebPagePreview = true
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		b.send(msg)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, prev.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup
	b.send(edit)
}

func (b *Bot) editPlain(chatID int64, prev *tgbotapi.Message, text string) {
	if prev == nil {
		b.reply(chatID, text)
		return
	}
	b.send(tgbotapi.NewEditMessageText(chatID, prev.MessageID, text))
}

// checkLimit enforces the per-user quota, messaging the user on
// denial. Returns true when the request may proceed.
func (b *Bot) checkLimit(chatID, userID int64) bool {
	allowed, retryAfter := b.limiter.Allow(userID)
	if allowed {
		return true
	}
	mins, secs := engine.SplitRetryAfter(retryAfter)
	b.reply(chatID, b.t(userID, "rate_limited",
		arg("minutes", mins), arg("seconds", secs)))
	return false
}

func (b *Bot) setPending(userID int64, kind string) {
	b.mu.Lock()
	b.pending[userID] = kind
	b.mu.Unlock()
}

func (b *Bot) takePending(userID int64) string {
	b.mu.Lock()
	kind := b.pending[userID]
	delete(b.pending, userID)
	b.mu.Unlock()
	return kind
}

// --- message dispatch ---

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		b.takePending(userID) // a command cancels any awaited input
		switch msg.Command() {
		case "start":
			reply := tgbotapi.NewMessage(chatID, b.t(userID, "welcome"))
			reply.ReplyMarkup = mainKeyboard(b.lang(userID))
			b.send(reply)
		case "help":
			reply := tgbotapi.NewMessage(chatID, b.t(userID, "help"))
			reply.ParseMode = tgbotapi.ModeMarkdown
			b.send(reply)
		case "lang":
			reply := tgbotapi.NewMessage(chatID, b.t(userID, "choose_lang"))
			reply.ReplyMarkup = langKeyboard()
			b.send(reply)
		case "search":
			if b.checkLimit(chatID, userID) {
				b.setPending(userID, "search")
				b.reply(chatID, b.t(userID, "ask_username"))
			}
		case "id":
			if b.checkLimit(chatID, userID) {
				b.setPending(userID, "id")
				b.reply(chatID, b.t(userID, "ask_id"))
			}
		case "video":
			if b.checkLimit(chatID, userID) {
				b.setPending(userID, "video")
				b.reply(chatID, b.t(userID, "ask_video_url"))
			}
		case "compare":
			if b.checkLimit(chatID, userID) {
				b.setPending(userID, "compare")
				b.reply(chatID, b.t(userID, "ask_compare"))
			}
		case "fav":
			b.handleFavCommand(chatID, userID, msg.CommandArguments())
		case "history":
			b.showHistory(chatID, userID)
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch b.takePending(userID) {
	case "search":
		b.runProfileSearch(ctx, chatID, userID, text, false)
	case "id":
		b.runIDSearch(ctx, chatID, userID, text)
	case "video":
		b.runVideoDownload(ctx, chatID, userID, text)
	case "compare":
		b.runCompare(ctx, chatID, userID, text)
	default:
		// A bare username message is treated as a search.
		if text != "" {
			if !b.checkLimit(chatID, userID) {
				return
			}
			b.runProfileSearch(ctx, chatID, userID, text, false)
		}
	}
}

// --- lookups ---

// lookupProfile resolves a username with a cache in front. refresh
// forces a live fetch.
func (b *Bot) lookupProfile(ctx context.Context, username string, refresh bool) (engine.ProfileRecord, error) {
	key := engine.CacheKey("profile", strings.ToLower(username))
	if !refresh {
		if rec, ok := engine.CacheLoadJSON[engine.ProfileRecord](ctx, key); ok {
			return rec, nil
		}
	}
	rec, err := b.profiles.ByUsername(ctx, username)
	if err != nil {
		return engine.ProfileRecord{}, err
	}
	engine.CacheStoreJSON(ctx, key, rec)
	return rec, nil
}

func (b *Bot) lookupProfileByID(ctx context.Context, id string) (engine.ProfileRecord, error) {
	key := engine.CacheKey("profile-id", id)
	if rec, ok := engine.CacheLoadJSON[engine.ProfileRecord](ctx, key); ok {
		return rec, nil
	}
	rec, err := b.profiles.ByID(ctx, id)
	if err != nil {
		return engine.ProfileRecord{}, err
	}
	engine.CacheStoreJSON(ctx, key, rec)
	return rec, nil
}

// runProfileSearch performs a username lookup and renders the result.
func (b *Bot) runProfileSearch(ctx context.Context, chatID, userID int64, input string, refresh bool) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	progress := b.reply(chatID, b.t(userID, "searching"))

	rec, err := b.lookupProfile(ctx, input, refresh)
	if err != nil {
		b.editPlain(chatID, progress, b.t(userID, "error_not_found"))
		return
	}

	b.store.AddHistory(userID, rec.Username)
	b.sendAvatar(chatID, rec)

	markup := profileKeyboard(b.loc, b.lang(userID), rec.Username, true)
	b.editOrReply(chatID, progress, renderProfile(b.loc, b.lang(userID), rec), &markup)
}

func (b *Bot) runIDSearch(ctx context.Context, chatID, userID int64, id string) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	progress := b.reply(chatID, b.t(userID, "searching"))

	rec, err := b.lookupProfileByID(ctx, strings.TrimSpace(id))
	if err != nil {
		b.editPlain(chatID, progress, b.t(userID, "error_not_found"))
		return
	}

	b.store.AddHistory(userID, rec.Username)
	b.sendAvatar(chatID, rec)

	markup := profileKeyboard(b.loc, b.lang(userID), rec.Username, true)
	b.editOrReply(chatID, progress, renderProfile(b.loc, b.lang(userID), rec), &markup)
}

func (b *Bot) sendAvatar(chatID int64, rec engine.ProfileRecord) {
	if rec.AvatarURL == "" || rec.AvatarURL == engine.Unknown {
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(rec.AvatarURL))
	if _, err := b.api.Send(photo); err != nil {
		slog.Debug("bot: avatar send failed", slog.Any("error", err))
	}
}

func (b *Bot) runVideoDownload(ctx context.Context, chatID, userID int64, videoURL string) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	progress := b.reply(chatID, b.t(userID, "downloading_video"))

	rec, err := b.videos.Resolve(ctx, videoURL)
	if err != nil {
		b.editPlain(chatID, progress, b.t(userID, "error_video"))
		return
	}

	video := tgbotapi.NewVideo(chatID, tgbotapi.FileURL(rec.MediaURL))
	video.SupportsStreaming = true
	var caption strings.Builder
	if rec.Title != "" {
		fmt.Fprintf(&caption, "📝 %s\n", rec.Title)
	}
	if rec.AuthorHandle != "" {
		fmt.Fprintf(&caption, "👤 @%s", rec.AuthorHandle)
	}
	video.Caption = caption.String()

	if _, err := b.api.Send(video); err != nil {
		slog.Warn("bot: video send failed", slog.Any("error", err))
		b.editPlain(chatID, progress, b.t(userID, "error_video"))
		return
	}
	b.editPlain(chatID, progress, b.t(userID, "video_sent"))
}

func (b *Bot) runCompare(ctx context.Context, chatID, userID int64, input string) {
	parts := strings.Fields(input)
	if len(parts) < 2 {
		b.setPending(userID, "compare")
		b.reply(chatID, b.t(userID, "ask_compare"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	progress := b.reply(chatID, b.t(userID, "comparing"))

	first, err1 := b.lookupProfile(ctx, parts[0], false)
	second, err2 := b.lookupProfile(ctx, parts[1], false)
	if err1 != nil || err2 != nil {
		b.editPlain(chatID, progress, b.t(userID, "error_compare"))
		return
	}

	b.editOrReply(chatID, progress, renderCompare(b.loc, b.lang(userID), first, second), nil)
}

// --- favorites and history ---

func (b *Bot) handleFavCommand(chatID, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) >= 2 {
		username := strings.TrimPrefix(fields[1], "@")
		switch strings.ToLower(fields[0]) {
		case "add":
			if b.store.AddFavorite(userID, username) {
				b.reply(chatID, b.t(userID, "fav_added", arg("username", username)))
			} else {
				b.reply(chatID, b.t(userID, "fav_exists", arg("username", username)))
			}
			return
		case "remove", "del", "rm":
			b.store.RemoveFavorite(userID, username)
			b.reply(chatID, b.t(userID, "fav_removed", arg("username", username)))
			return
		}
	}
	b.showFavorites(chatID, userID)
}

func (b *Bot) showFavorites(chatID, userID int64) {
	favs := b.store.Favorites(userID)
	if len(favs) == 0 {
		b.reply(chatID, b.t(userID, "fav_empty"))
		return
	}
	title := b.t(userID, "fav_title", arg("count", len(favs)))
	text, markup := renderUserList(title, favs, nil)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) showHistory(chatID, userID int64) {
	entries := b.store.History(userID, 10)
	if len(entries) == 0 {
		b.reply(chatID, b.t(userID, "history_empty"))
		return
	}
	usernames := make([]string, len(entries))
	times := make([]string, len(entries))
	for i, e := range entries {
		usernames[i] = e.Username
		times[i] = e.At.UTC().Format("2006-01-02 15:04")
	}
	text, markup := renderUserList(b.t(userID, "history_title"), usernames, times)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = markup
	b.send(msg)
}

// --- callbacks ---

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		slog.Debug("bot: callback ack failed", slog.Any("error", err))
	}

	userID := query.From.ID
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	data := query.Data

	switch {
	case strings.HasPrefix(data, "lang:"):
		code := strings.TrimPrefix(data, "lang:")
		b.store.SetLang(userID, code)
		b.send(tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, b.t(userID, "lang_changed")))

	case strings.HasPrefix(data, "action:"):
		b.handleAction(chatID, userID, strings.TrimPrefix(data, "action:"))

	case strings.HasPrefix(data, "refresh:"):
		parts := strings.SplitN(data, ":", 3)
		if len(parts) != 3 {
			return
		}
		if !b.checkLimit(chatID, userID) {
			return
		}
		b.runRefresh(ctx, chatID, userID, query.Message.MessageID, parts[1], parts[2])

	case strings.HasPrefix(data, "addfav:"):
		username := strings.TrimPrefix(data, "addfav:")
		if b.store.AddFavorite(userID, username) {
			b.reply(chatID, b.t(userID, "fav_added", arg("username", username)))
		} else {
			b.reply(chatID, b.t(userID, "fav_exists", arg("username", username)))
		}

	case strings.HasPrefix(data, "favsearch:"):
		username := strings.TrimPrefix(data, "favsearch:")
		if !b.checkLimit(chatID, userID) {
			return
		}
		b.runProfileSearch(ctx, chatID, userID, username, false)

	case strings.HasPrefix(data, "raw:"):
		parts := strings.SplitN(data, ":", 3)
		if len(parts) != 3 {
			return
		}
		b.sendRawExport(ctx, chatID, userID, parts[2])
	}
}

func (b *Bot) handleAction(chatID, userID int64, action string) {
	switch action {
	case "search", "id", "video", "compare":
		b.setPending(userID, action)
		prompts := map[string]string{
			"search":  "ask_username",
			"id":      "ask_id",
			"video":   "ask_video_url",
			"compare": "ask_compare",
		}
		b.reply(chatID, b.t(userID, prompts[action]))
	case "fav":
		b.showFavorites(chatID, userID)
	case "history":
		b.showHistory(chatID, userID)
	case "lang":
		reply := tgbotapi.NewMessage(chatID, b.t(userID, "choose_lang"))
		reply.ReplyMarkup = langKeyboard()
		b.send(reply)
	}
}

// runRefresh re-fetches a profile bypassing the cache and edits the
// original message in place.
func (b *Bot) runRefresh(ctx context.Context, chatID, userID int64, messageID int, searchType, identifier string) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var (
		rec engine.ProfileRecord
		err error
	)
	if searchType == "username" {
		rec, err = b.lookupProfile(ctx, identifier, true)
	} else {
		rec, err = b.profiles.ByID(ctx, identifier)
	}
	if err != nil {
		b.reply(chatID, b.t(userID, "error_not_found"))
		return
	}

	markup := profileKeyboard(b.loc, b.lang(userID), rec.Username, false)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, renderProfile(b.loc, b.lang(userID), rec))
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = &markup
	b.send(edit)
}

// sendRawExport ships the upstream user+stats JSON as a document.
func (b *Bot) sendRawExport(ctx context.Context, chatID, userID int64, username string) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	rec, err := b.lookupProfile(ctx, username, false)
	if err != nil {
		b.reply(chatID, b.t(userID, "error_not_found"))
		return
	}

	payload := map[string]json.RawMessage{
		"user":  rec.RawUser,
		"stats": rec.RawStats,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		b.reply(chatID, b.t(userID, "error_general"))
		return
	}

	filename := time.Now().UTC().Format("2006-01-02") + "_" + username + "_raw.json"
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	b.send(doc)
}
