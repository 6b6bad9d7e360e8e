package dispatch

import (
	"context"
	"encoding/json"

	"github.com/creatorhub/crosspost-api/internal/models"
)

// Sender publishes a single post to one channel. Settings arrive as the
// tenant's raw settings document for that channel.
type Sender interface {
	Send(ctx context.Context, settings json.RawMessage, post *models.NewsfeedPost) error
}

// Descriptor describes one outbound channel: how to decide whether a
// tenant has it configured, whether a given post fits it, and how to send.
type Descriptor struct {
	ID   string
	Name string

	// Selectable channels show up in the enabled-channel listing that the
	// composer offers; broadcast-style channels (whatsapp, signal, email)
	// always receive eligible posts and are not listed.
	Selectable bool

	// Video marks channels that accept video posts.
	Video bool

	// Eligible reports whether the raw settings carry enough credentials
	// for the channel to be used at all.
	Eligible func(raw map[string]any) bool

	// Filter, when non-nil, restricts which posts the channel accepts.
	Filter func(post *models.NewsfeedPost) bool

	// DisplayName, when non-nil, derives a per-tenant label from the raw
	// settings (e.g. the Telegram chat name).
	DisplayName func(raw map[string]any) string
}

func strField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func boolField(raw map[string]any, key string) bool {
	v, ok := raw[key].(bool)
	return ok && v
}

func enabledWith(keys ...string) func(raw map[string]any) bool {
	return func(raw map[string]any) bool {
		if !boolField(raw, "enabled") {
			return false
		}
		for _, k := range keys {
			if strField(raw, k) == "" {
				return false
			}
		}
		return true
	}
}

func hasMedia(post *models.NewsfeedPost) bool {
	return post.HasVideo() || post.HasImage()
}

// Registry holds every channel the dispatcher knows about, keyed by id.
// Order follows models.ChannelIDs so fan-out and listings are stable.
func Registry() []Descriptor {
	return []Descriptor{
		{
			ID: models.ChannelTelegram, Name: "Telegram", Selectable: true,
			Eligible: enabledWith("botToken", "chatId"),
			DisplayName: func(raw map[string]any) string {
				if name := strField(raw, "chatName"); name != "" {
					return "Telegram (" + name + ")"
				}
				return "Telegram"
			},
		},
		{
			ID: models.ChannelDiscord, Name: "Discord", Selectable: true,
			Eligible: enabledWith("webhookUrl"),
		},
		{
			ID: models.ChannelSlack, Name: "Slack", Selectable: true,
			Eligible: enabledWith("webhookUrl"),
		},
		{
			ID: models.ChannelFacebook, Name: "Facebook", Selectable: true, Video: true,
			Eligible: enabledWith("pageAccessToken", "pageId"),
		},
		{
			ID: models.ChannelInstagram, Name: "Instagram", Selectable: true, Video: true,
			Eligible: enabledWith("accessToken", "accountId"),
			Filter:   hasMedia,
		},
		{
			ID: models.ChannelXTwitter, Name: "X", Selectable: true, Video: true,
			Eligible: func(raw map[string]any) bool {
				if !boolField(raw, "enabled") {
					return false
				}
				if strField(raw, "oauth2AccessToken") != "" {
					return true
				}
				return strField(raw, "apiKey") != "" && strField(raw, "accessToken") != ""
			},
		},
		{
			ID: models.ChannelLinkedIn, Name: "LinkedIn", Selectable: true, Video: true,
			Eligible: enabledWith("accessToken"),
		},
		{
			ID: models.ChannelYouTube, Name: "YouTube", Selectable: true, Video: true,
			Eligible: enabledWith("accessToken"),
			Filter: func(post *models.NewsfeedPost) bool {
				return post.IsShort && post.VideoKey != ""
			},
		},
		{
			ID: models.ChannelBluesky, Name: "Bluesky", Selectable: true, Video: true,
			Eligible: enabledWith("handle", "appPassword"),
		},
		{
			ID: models.ChannelMastodon, Name: "Mastodon", Selectable: true, Video: true,
			Eligible: enabledWith("instanceUrl", "accessToken"),
		},
		{
			ID: models.ChannelThreads, Name: "Threads", Selectable: true, Video: true,
			Eligible: enabledWith("accessToken", "userId"),
		},
		{
			ID: models.ChannelTikTok, Name: "TikTok", Selectable: true, Video: true,
			Eligible: enabledWith("accessToken"),
			Filter: func(post *models.NewsfeedPost) bool {
				return post.HasVideo() || post.ImageCount() >= 2
			},
		},
		{
			ID: models.ChannelSnapchat, Name: "Snapchat", Selectable: true, Video: true,
			Eligible: enabledWith("accessToken", "organizationId"),
			Filter:   hasMedia,
		},
		{
			ID: models.ChannelWhatsApp, Name: "WhatsApp",
			Eligible: func(raw map[string]any) bool { return boolField(raw, "enabled") },
		},
		{
			ID: models.ChannelSignal, Name: "Signal",
			Eligible: enabledWith("apiUrl", "phoneNumber", "groupId"),
		},
		{
			ID: models.ChannelEmail, Name: "Email",
			Eligible: enabledWith("senderPrefix"),
		},
	}
}

// Lookup returns the descriptor for a channel id, or nil when unknown.
func Lookup(channelID string) *Descriptor {
	for _, d := range Registry() {
		if d.ID == channelID {
			desc := d
			return &desc
		}
	}
	return nil
}
