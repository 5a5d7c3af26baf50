// Package telegram adapts the bot surface to Telegram via telebot: the
// subscription commands channels use to manage feeds, and the Broadcaster
// that delivers composed feed updates.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"golang.org/x/time/rate"

	"rsscat/internal/storage"
	"rsscat/internal/transport"
	logx "rsscat/pkg/logx"
)

const channelPrefix = "telegram:"

type Config struct {
	Token       string
	PollTimeout time.Duration
	// RatePerSec caps outbound sends across all broadcasts (Telegram's API
	// throttles aggressively around 30 msg/s globally).
	RatePerSec int
}

// Subscriptions is the command-facing surface the adapter drives. Implemented
// by subscription.Service; narrowed here so the adapter is testable without
// a real store.
type Subscriptions interface {
	Subscribe(ctx context.Context, rawURL string, ch transport.ChannelID) (storage.Source, error)
	Unsubscribe(ctx context.Context, ref string, ch transport.ChannelID) (storage.Source, error)
	List(ctx context.Context, ch transport.ChannelID) ([]storage.Source, error)
}

type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	subs    Subscriptions
	limiter *rate.Limiter

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, subs Subscriptions, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		subs:    subs,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
	a.registerHandlers()
	return a, nil
}

// Start begins long-polling for commands. It returns immediately.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.running {
		return
	}
	a.running = true
	go a.bot.Start()
}

func (a *Adapter) Stop(ctx context.Context) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	a.bot.Stop()
}

// ---- Commands ----

func (a *Adapter) registerHandlers() {
	a.bot.Handle("/rss_add", a.handleAdd)
	a.bot.Handle("/rss_remove", a.handleRemove)
	a.bot.Handle("/rss_list", a.handleList)

	_ = a.bot.SetCommands([]tele.Command{
		{Text: "rss_add", Description: "Subscribe this chat to a feed URL"},
		{Text: "rss_remove", Description: "Unsubscribe by source id or URL"},
		{Text: "rss_list", Description: "List this chat's subscriptions"},
	})
}

func (a *Adapter) handleAdd(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /rss_add <feed url>")
	}
	ch := channelID(c.Chat())
	ctx, cancel := commandCtx()
	defer cancel()

	_ = c.Reply("Checking the feed, this can take a few seconds.")
	src, err := a.subs.Subscribe(ctx, args[0], ch)
	if err != nil {
		a.log.Warn("subscribe failed", logx.String("channel", string(ch)), logx.Err(err))
		return c.Reply("Could not subscribe: " + userMessage(err))
	}
	return c.Reply(fmt.Sprintf("Subscribed: %d - %s", src.ID, src.URL))
}

func (a *Adapter) handleRemove(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Reply("Usage: /rss_remove <source id or url>")
	}
	ch := channelID(c.Chat())
	ctx, cancel := commandCtx()
	defer cancel()

	_, err := a.subs.Unsubscribe(ctx, args[0], ch)
	if err != nil {
		a.log.Warn("unsubscribe failed", logx.String("channel", string(ch)), logx.Err(err))
		return c.Reply("Could not unsubscribe: " + userMessage(err))
	}
	return c.Reply("Subscription removed.")
}

func (a *Adapter) handleList(c tele.Context) error {
	ch := channelID(c.Chat())
	ctx, cancel := commandCtx()
	defer cancel()

	sources, err := a.subs.List(ctx, ch)
	if err != nil {
		a.log.Warn("list failed", logx.String("channel", string(ch)), logx.Err(err))
		return c.Reply("Could not list subscriptions: " + userMessage(err))
	}
	if len(sources) == 0 {
		return c.Reply("This chat has no subscriptions yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d subscription(s):\n", len(sources))
	for _, src := range sources {
		fmt.Fprintf(&b, "%d - %s\n", src.ID, src.URL)
	}
	return c.Reply(truncRunes(b.String(), maxMessageLen), &tele.SendOptions{DisableWebPagePreview: true})
}

// commandCtx bounds one command round-trip; commands should not hang a
// handler goroutine indefinitely when a probe stalls.
func commandCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// ---- Broadcaster ----

// Broadcast delivers one composed message to every subscriber channel.
// Per-channel failures are logged and skipped; the call as a whole fails
// only when the context dies (so the updater can stop a batch cleanly).
func (a *Adapter) Broadcast(ctx context.Context, subscribers []transport.ChannelID, msg transport.Message) error {
	for _, sub := range subscribers {
		chatID, err := parseChatID(sub)
		if err != nil {
			a.log.Warn("skipping non-telegram subscriber", logx.String("channel", string(sub)), logx.Err(err))
			continue
		}
		if err := a.sendOne(ctx, chatID, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.log.Warn("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
		}
	}
	return nil
}

func (a *Adapter) sendOne(ctx context.Context, chatID int64, msg transport.Message) error {
	to := tele.ChatID(chatID)

	if msg.Text != "" {
		opt := &tele.SendOptions{DisableWebPagePreview: true}
		var parts []string
		if msg.HTML {
			// Splitting rich text could leave unbalanced tags in a chunk,
			// which Telegram rejects outright; truncate to one message and
			// close whatever the cut left open.
			opt.ParseMode = tele.ModeHTML
			parts = []string{truncHTML(msg.Text, maxMessageLen)}
		} else {
			parts = splitMessage(msg.Text, maxMessageLen)
		}
		for _, part := range parts {
			if err := a.limiter.Wait(ctx); err != nil {
				return err
			}
			if _, err := a.bot.Send(to, part, opt); err != nil {
				return err
			}
		}
	}

	for _, img := range msg.Images {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		photo := &tele.Photo{File: tele.FromURL(img)}
		if _, err := a.bot.Send(to, photo); err != nil {
			// A dead image URL should not sink the rest of the attachments.
			a.log.Warn("photo send failed", logx.Int64("chat_id", chatID), logx.String("src", img), logx.Err(err))
		}
	}
	return nil
}

func channelID(chat *tele.Chat) transport.ChannelID {
	return transport.ChannelID(channelPrefix + strconv.FormatInt(chat.ID, 10))
}

func parseChatID(ch transport.ChannelID) (int64, error) {
	s := string(ch)
	if !strings.HasPrefix(s, channelPrefix) {
		return 0, fmt.Errorf("channel %q is not a telegram chat", s)
	}
	return strconv.ParseInt(strings.TrimPrefix(s, channelPrefix), 10, 64)
}

func userMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
