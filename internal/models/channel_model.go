package models

// Channel identifiers. One external integration per id; settings for each are
// stored and fetched independently so one misconfigured channel never affects
// another.
const (
	ChannelTelegram  = "telegram"
	ChannelDiscord   = "discord"
	ChannelSlack     = "slack"
	ChannelWhatsApp  = "whatsapp"
	ChannelEmail     = "email"
	ChannelFacebook  = "facebook"
	ChannelInstagram = "instagram"
	ChannelSignal    = "signal"
	ChannelXTwitter  = "xtwitter"
	ChannelLinkedIn  = "linkedin"
	ChannelThreads   = "threads"
	ChannelYouTube   = "youtube"
	ChannelBluesky   = "bluesky"
	ChannelMastodon  = "mastodon"
	ChannelTikTok    = "tiktok"
	ChannelSnapchat  = "snapchat"
)

// ChannelIDs lists every supported channel in a stable order.
var ChannelIDs = []string{
	ChannelTelegram, ChannelDiscord, ChannelSlack, ChannelWhatsApp,
	ChannelEmail, ChannelFacebook, ChannelInstagram, ChannelSignal,
	ChannelXTwitter, ChannelLinkedIn, ChannelThreads, ChannelYouTube,
	ChannelBluesky, ChannelMastodon, ChannelTikTok, ChannelSnapchat,
}

// EnabledChannel is the reduced view returned by the enabled-channels
// aggregate: just enough for a post modal to render a checkbox.
type EnabledChannel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type TelegramSettings struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
	ChatName string `json:"chatName"`
}

type DiscordSettings struct {
	Enabled     bool   `json:"enabled"`
	WebhookURL  string `json:"webhookUrl"`
	ChannelName string `json:"channelName"`
}

type SlackSettings struct {
	Enabled     bool   `json:"enabled"`
	WebhookURL  string `json:"webhookUrl"`
	ChannelName string `json:"channelName"`
}

type WhatsAppSettings struct {
	Enabled             bool   `json:"enabled"`
	SubscriberCount     int    `json:"subscriberCount,omitempty"`
	SubscribeCode       string `json:"subscribeCode,omitempty"`
	WelcomeMessage      string `json:"welcomeMessage,omitempty"`
	WhatsAppNumber      string `json:"whatsappNumber,omitempty"`
	WhatsAppDisplayName string `json:"whatsappDisplayName,omitempty"`
	PhoneNumberID       string `json:"phoneNumberId,omitempty"`
	GroupID             string `json:"groupId,omitempty"`
	GroupName           string `json:"groupName,omitempty"`
}

type EmailSettings struct {
	Enabled      bool     `json:"enabled"`
	SenderPrefix string   `json:"senderPrefix"`
	SenderDomain string   `json:"senderDomain"`
	SenderName   string   `json:"senderName"`
	Recipients   []string `json:"recipients,omitempty"`
}

type FacebookSettings struct {
	Enabled         bool   `json:"enabled"`
	PageAccessToken string `json:"pageAccessToken"`
	PageID          string `json:"pageId"`
	PageName        string `json:"pageName"`
}

type InstagramSettings struct {
	Enabled     bool   `json:"enabled"`
	AccessToken string `json:"accessToken"`
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
}

type SignalSettings struct {
	Enabled     bool   `json:"enabled"`
	APIURL      string `json:"apiUrl"`
	PhoneNumber string `json:"phoneNumber"`
	GroupID     string `json:"groupId"`
}

type XTwitterSettings struct {
	Enabled           bool   `json:"enabled"`
	APIKey            string `json:"apiKey"`
	APISecret         string `json:"apiSecret"`
	AccessToken       string `json:"accessToken"`
	AccessTokenSecret string `json:"accessTokenSecret"`
	AccountName       string `json:"accountName"`
	ClientID          string `json:"clientId,omitempty"`
	ClientSecret      string `json:"clientSecret,omitempty"`
	OAuth2AccessToken string `json:"oauth2AccessToken,omitempty"`
	OAuth2Refresh     string `json:"oauth2RefreshToken,omitempty"`
	UserID            string `json:"userId,omitempty"`
}

type LinkedInSettings struct {
	Enabled          bool   `json:"enabled"`
	AccessToken      string `json:"accessToken"`
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	ClientID         string `json:"clientId"`
	ClientSecret     string `json:"clientSecret"`
	PersonURN        string `json:"personUrn,omitempty"`
}

type ThreadsSettings struct {
	Enabled     bool   `json:"enabled"`
	AccessToken string `json:"accessToken"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
}

type YouTubeSettings struct {
	Enabled      bool   `json:"enabled"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ChannelID    string `json:"channelId"`
	ChannelName  string `json:"channelName"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type BlueskySettings struct {
	Enabled     bool   `json:"enabled"`
	Handle      string `json:"handle"`
	AppPassword string `json:"appPassword"`
	DisplayName string `json:"displayName"`
}

type MastodonSettings struct {
	Enabled     bool   `json:"enabled"`
	InstanceURL string `json:"instanceUrl"`
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
}

// TikTokSettings carries the compliance and interaction flags the TikTok
// content-posting API requires alongside the credentials.
type TikTokSettings struct {
	Enabled           bool     `json:"enabled"`
	AccessToken       string   `json:"accessToken"`
	RefreshToken      string   `json:"refreshToken"`
	OpenID            string   `json:"openId"`
	DisplayName       string   `json:"displayName"`
	AvatarURL         string   `json:"avatarUrl,omitempty"`
	ExpiresAt         int64    `json:"expiresAt,omitempty"`
	PostAsDraft       bool     `json:"postAsDraft"`
	DefaultPrivacy    string   `json:"defaultPrivacy"`
	AllowComment      bool     `json:"allowComment"`
	AllowDuet         bool     `json:"allowDuet"`
	AllowStitch       bool     `json:"allowStitch"`
	CommercialContent bool     `json:"commercialContentEnabled"`
	BrandOrganic      bool     `json:"brandOrganic"`
	BrandedContent    bool     `json:"brandedContent"`
	PostsToday        int      `json:"postsToday"`
	PostsLastReset    string   `json:"postsLastReset,omitempty"`
	TermsAccepted     bool     `json:"termsAccepted"`
	TermsAcceptedAt   string   `json:"termsAcceptedAt,omitempty"`
	PrivacyOptions    []string `json:"privacyLevelOptions,omitempty"`
	MaxVideoDuration  int      `json:"maxVideoDuration,omitempty"`
	CanPostVideo      *bool    `json:"canPostVideo,omitempty"`
	CanPostPhoto      *bool    `json:"canPostPhoto,omitempty"`
	PostingLimitMsg   string   `json:"postingLimitMessage,omitempty"`
}

type SnapchatSettings struct {
	Enabled        bool   `json:"enabled"`
	AccessToken    string `json:"accessToken"`
	RefreshToken   string `json:"refreshToken"`
	OrganizationID string `json:"organizationId"`
	ProfileID      string `json:"profileId"`
	DisplayName    string `json:"displayName"`
	ExpiresAt      int64  `json:"expiresAt,omitempty"`
	PostAsStory    bool   `json:"postAsStory"`
}
