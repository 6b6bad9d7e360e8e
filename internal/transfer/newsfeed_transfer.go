package transfer

import "github.com/creatorhub/crosspost-api/internal/models"

// PostCreation is the request body for creating or updating a newsfeed post.
type PostCreation struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ImageKey     string   `json:"imageKey,omitempty"`
	ImageKeys    []string `json:"imageKeys,omitempty"`
	ImageURLs    []string `json:"imageUrls,omitempty"`
	VideoKey     string   `json:"videoKey,omitempty"`
	ExternalLink string   `json:"externalLink,omitempty"`
	Location     string   `json:"location,omitempty"`
	LocationURL  string   `json:"locationUrl,omitempty"`
	Status       string   `json:"status,omitempty"`
	IsShort      bool     `json:"isShort,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Channels     []string `json:"channels,omitempty"`
}

// SlotsUpdate replaces a tenant's whole slot table.
type SlotsUpdate struct {
	Slots    []models.PostingSlot `json:"slots"`
	Timezone string               `json:"timezone"`
}

// ScheduleRequest creates or updates a scheduled post.
type ScheduleRequest struct {
	Post        *models.NewsfeedPost `json:"post"`
	ScheduledAt string               `json:"scheduledAt"`
}

// UploadURLRequest asks for a presigned PUT URL for direct media upload.
type UploadURLRequest struct {
	FileName   string `json:"fileName"`
	FileType   string `json:"fileType"`
	UploadType string `json:"uploadType,omitempty"`
}

// UploadURLResponse carries the presigned URL and the object key the client
// must echo back as imageKey/videoKey when it creates the post.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
}
