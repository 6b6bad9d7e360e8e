package models

import "time"

// NewsfeedPost is the canonical post record. Media is referenced by object
// keys; public URLs are derived from the CDN domain at read time.
type NewsfeedPost struct {
	PostID       string    `db:"post_id" json:"postId"`
	TenantID     string    `db:"tenant_id" json:"-"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	ImageKey     string    `db:"image_key" json:"imageKey,omitempty"`
	ImageURL     string    `db:"-" json:"imageUrl,omitempty"`
	ImageKeys    []string  `db:"image_keys" json:"imageKeys,omitempty"`
	ImageURLs    []string  `db:"-" json:"imageUrls,omitempty"`
	VideoKey     string    `db:"video_key" json:"videoKey,omitempty"`
	VideoURL     string    `db:"-" json:"videoUrl,omitempty"`
	ExternalLink string    `db:"external_link" json:"externalLink,omitempty"`
	Location     string    `db:"location" json:"location,omitempty"`
	LocationURL  string    `db:"location_url" json:"locationUrl,omitempty"`
	Status       string    `db:"status" json:"status"`
	ScheduledAt  string    `db:"scheduled_at" json:"scheduledAt,omitempty"`
	IsShort      bool      `db:"is_short" json:"isShort,omitempty"`
	Tags         []string  `db:"tags" json:"tags,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusScheduled = "scheduled"
)

const MaxPostTags = 5

// HasVideo reports whether the post carries video media.
func (p *NewsfeedPost) HasVideo() bool {
	return p.VideoKey != "" || p.VideoURL != ""
}

// HasImage reports whether the post carries at least one image.
func (p *NewsfeedPost) HasImage() bool {
	return p.ImageKey != "" || p.ImageURL != "" || len(p.ImageKeys) > 0 || len(p.ImageURLs) > 0
}

// ImageCount counts the images attached to the post, counting the single
// image field and the multi-image list together.
func (p *NewsfeedPost) ImageCount() int {
	n := len(p.ImageKeys)
	if n == 0 {
		n = len(p.ImageURLs)
	}
	if n == 0 && (p.ImageKey != "" || p.ImageURL != "") {
		n = 1
	}
	return n
}
