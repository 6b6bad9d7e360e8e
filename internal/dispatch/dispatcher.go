package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	configs "github.com/creatorhub/crosspost-api/configs"
	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/repository"
)

// SettingsStore hands the dispatcher per-tenant channel settings. Load
// returns an empty JSON object when a tenant never configured the channel;
// Store persists the (possibly mutated) document back.
type SettingsStore interface {
	Load(ctx context.Context, tenantID, channelID string) (json.RawMessage, error)
	Store(ctx context.Context, tenantID, channelID string, raw json.RawMessage) error
}

type Dispatcher struct {
	settings SettingsStore
	history  repository.DispatchHistoryRepository
	senders  map[string]Sender
	workers  int
}

func NewDispatcher(cfg *configs.Config, settings SettingsStore, history repository.DispatchHistoryRepository) *Dispatcher {
	workers := cfg.DispatchWorkers
	if workers <= 0 {
		workers = 10
	}
	return &Dispatcher{
		settings: settings,
		history:  history,
		senders:  newSenders(cfg),
		workers:  workers,
	}
}

func newSenders(cfg *configs.Config) map[string]Sender {
	client := &http.Client{Timeout: 30 * time.Second}
	return map[string]Sender{
		models.ChannelTelegram:  &TelegramSender{Client: client},
		models.ChannelDiscord:   &DiscordSender{Client: client},
		models.ChannelSlack:     &SlackSender{Client: client},
		models.ChannelFacebook:  &FacebookSender{Client: client},
		models.ChannelInstagram: &InstagramSender{Client: client},
		models.ChannelXTwitter:  &XTwitterSender{Client: client},
		models.ChannelLinkedIn:  &LinkedInSender{Client: client},
		models.ChannelYouTube:   &YouTubeSender{Client: client, CDNDomain: cfg.CDNDomain},
		models.ChannelBluesky:   &BlueskySender{Client: client},
		models.ChannelMastodon:  &MastodonSender{Client: client},
		models.ChannelThreads:   &ThreadsSender{Client: client},
		models.ChannelTikTok:    &TikTokSender{Client: client},
		models.ChannelSnapchat:  &SnapchatSender{Client: client},
		models.ChannelWhatsApp:  &WhatsAppSender{Client: client, AccessToken: cfg.WhatsAppToken},
		models.ChannelSignal:    &SignalSender{Client: client},
		models.ChannelEmail:     &EmailSender{Region: cfg.SESRegion, SenderBase: cfg.EmailSenderBase},
	}
}

// Dispatch fans a published post out to every eligible channel. Selected
// restricts selectable channels when non-empty; broadcast channels (the
// non-selectable ones) always receive the post if configured. One channel
// failing never blocks the others.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, post *models.NewsfeedPost, selected []string) ([]models.DispatchResult, error) {
	if post == nil {
		return nil, errors.New("dispatch: nil post")
	}
	if post.Status != models.PostStatusPublished {
		return nil, errors.New("dispatch: post is not published")
	}

	wanted := make(map[string]bool, len(selected))
	for _, id := range selected {
		wanted[id] = true
	}

	registry := Registry()
	results := make([]models.DispatchResult, len(registry))

	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)

	for i, desc := range registry {
		if desc.Selectable && len(selected) > 0 && !wanted[desc.ID] {
			results[i] = models.DispatchResult{Channel: desc.ID, Outcome: models.DispatchOutcomeSkipped, Detail: "not selected"}
			continue
		}

		raw, err := d.settings.Load(ctx, tenantID, desc.ID)
		if err != nil {
			slog.Info(err.Error())
			results[i] = models.DispatchResult{Channel: desc.ID, Outcome: models.DispatchOutcomeSkipped, Detail: "settings unavailable"}
			continue
		}

		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			slog.Info(err.Error())
			results[i] = models.DispatchResult{Channel: desc.ID, Outcome: models.DispatchOutcomeSkipped, Detail: "settings unreadable"}
			continue
		}
		if desc.Eligible != nil && !desc.Eligible(cfg) {
			results[i] = models.DispatchResult{Channel: desc.ID, Outcome: models.DispatchOutcomeSkipped, Detail: "not configured"}
			continue
		}
		if desc.Filter != nil && !desc.Filter(post) {
			results[i] = models.DispatchResult{Channel: desc.ID, Outcome: models.DispatchOutcomeSkipped, Detail: "post not suitable"}
			continue
		}

		sender, ok := d.senders[desc.ID]
		if !ok {
			results[i] = models.DispatchResult{Channel: desc.ID, Outcome: models.DispatchOutcomeSkipped, Detail: "no sender"}
			continue
		}

		wg.Add(1)
		go func(i int, channelID string, raw json.RawMessage, sender Sender) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := sender.Send(ctx, raw, post); err != nil {
				slog.Error("dispatch failed", "channel", channelID, "post_id", post.PostID, "error", err)
				results[i] = models.DispatchResult{Channel: channelID, Outcome: models.DispatchOutcomeFailed, Detail: err.Error()}
				return
			}
			results[i] = models.DispatchResult{Channel: channelID, Outcome: models.DispatchOutcomeSuccess}
			d.incrementPostCount(ctx, tenantID, channelID, raw)
		}(i, desc.ID, raw, sender)
	}

	wg.Wait()

	for _, res := range results {
		if res.Channel == "" {
			continue
		}
		record := &models.DispatchRecord{
			TenantID: tenantID,
			PostID:   post.PostID,
			Channel:  res.Channel,
			Outcome:  res.Outcome,
			Detail:   res.Detail,
		}
		if _, err := d.history.Create(ctx, record); err != nil {
			slog.Info(err.Error())
		}
	}

	final := results[:0]
	for _, res := range results {
		if res.Channel != "" {
			final = append(final, res)
		}
	}
	return final, nil
}

// Send publishes directly to a single channel, bypassing eligibility
// filters. Used by the settings test-send endpoint.
func (d *Dispatcher) Send(ctx context.Context, tenantID, channelID string, post *models.NewsfeedPost) error {
	sender, ok := d.senders[channelID]
	if !ok {
		return errors.New("unknown channel: " + channelID)
	}
	raw, err := d.settings.Load(ctx, tenantID, channelID)
	if err != nil {
		return err
	}
	return sender.Send(ctx, raw, post)
}

// incrementPostCount bumps the channel's daily counter, resetting it on
// the first post of each UTC day. Counter failures are logged, not fatal.
func (d *Dispatcher) incrementPostCount(ctx context.Context, tenantID, channelID string, raw json.RawMessage) {
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		slog.Info(err.Error())
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	count := 0
	if cfg["postsLastReset"] == today {
		if n, ok := cfg["postsToday"].(float64); ok {
			count = int(n)
		}
	}
	cfg["postsToday"] = count + 1
	cfg["postsLastReset"] = today

	updated, err := json.Marshal(cfg)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if err := d.settings.Store(ctx, tenantID, channelID, updated); err != nil {
		slog.Info(err.Error())
	}
}
