package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/repository"
	"github.com/creatorhub/crosspost-api/internal/transfer"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrInvalidPost   = errors.New("title and description are required")
	ErrTooManyTags   = errors.New("too many tags")
	ErrInvalidStatus = errors.New("invalid post status")
	ErrInvalidMedia  = errors.New("unsupported media type")
)

// PostDispatcher fans a published post out to the configured channels.
type PostDispatcher interface {
	Dispatch(ctx context.Context, tenantID string, post *models.NewsfeedPost, selected []string) ([]models.DispatchResult, error)
}

type NewsfeedService interface {
	CreatePost(ctx context.Context, tenantID string, req *transfer.PostCreation, channels []string) (*models.NewsfeedPost, []models.DispatchResult, error)
	UpdatePost(ctx context.Context, tenantID, postID string, req *transfer.PostCreation, channels []string) (*models.NewsfeedPost, []models.DispatchResult, error)
	GetPost(ctx context.Context, tenantID, postID string) (*models.NewsfeedPost, error)
	ListPosts(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error)
	ListPublished(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error)
	DeletePost(ctx context.Context, tenantID, postID string) error
	UploadMedia(ctx context.Context, tenantID, fileName string, data []byte) (*transfer.UploadURLResponse, error)
	CreateUploadURL(ctx context.Context, tenantID string, req *transfer.UploadURLRequest) (*transfer.UploadURLResponse, error)
	EnrichMediaURLs(post *models.NewsfeedPost)
}

type newsfeedService struct {
	nr         repository.NewsfeedRepository
	storage    *StorageService
	dispatcher PostDispatcher
}

func NewNewsfeedService(nr repository.NewsfeedRepository, storage *StorageService, dispatcher PostDispatcher) NewsfeedService {
	return &newsfeedService{nr: nr, storage: storage, dispatcher: dispatcher}
}

func (s *newsfeedService) CreatePost(ctx context.Context, tenantID string, req *transfer.PostCreation, channels []string) (*models.NewsfeedPost, []models.DispatchResult, error) {
	if err := validatePost(req); err != nil {
		slog.Error(err.Error())
		return nil, nil, err
	}

	postID, err := gonanoid.New()
	if err != nil {
		return nil, nil, err
	}

	post := &models.NewsfeedPost{
		PostID:   postID,
		TenantID: tenantID,
		Status:   models.PostStatusDraft,
	}
	applyPostFields(post, req)
	if req.Status != "" {
		post.Status = req.Status
	}

	if err := s.nr.Create(ctx, post); err != nil {
		return nil, nil, err
	}

	s.EnrichMediaURLs(post)

	var results []models.DispatchResult
	if post.Status == models.PostStatusPublished {
		results = s.dispatch(ctx, tenantID, post, channels)
	}
	return post, results, nil
}

func (s *newsfeedService) UpdatePost(ctx context.Context, tenantID, postID string, req *transfer.PostCreation, channels []string) (*models.NewsfeedPost, []models.DispatchResult, error) {
	if err := validatePost(req); err != nil {
		slog.Error(err.Error())
		return nil, nil, err
	}

	post, err := s.nr.GetByID(ctx, tenantID, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, ErrPostNotFound
	}

	wasPublished := post.Status == models.PostStatusPublished
	applyPostFields(post, req)
	if req.Status != "" {
		post.Status = req.Status
	}

	if err := s.nr.Update(ctx, post); err != nil {
		return nil, nil, err
	}

	s.EnrichMediaURLs(post)

	// Crossposting fires once, on the draft-to-published transition.
	var results []models.DispatchResult
	if !wasPublished && post.Status == models.PostStatusPublished {
		results = s.dispatch(ctx, tenantID, post, channels)
	}
	return post, results, nil
}

func (s *newsfeedService) GetPost(ctx context.Context, tenantID, postID string) (*models.NewsfeedPost, error) {
	post, err := s.nr.GetByID(ctx, tenantID, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	s.EnrichMediaURLs(post)
	return post, nil
}

func (s *newsfeedService) ListPosts(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error) {
	posts, err := s.nr.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		s.EnrichMediaURLs(post)
	}
	return posts, nil
}

// ListPublished backs the public newsfeed read and therefore only
// surfaces published posts.
func (s *newsfeedService) ListPublished(ctx context.Context, tenantID string) ([]*models.NewsfeedPost, error) {
	posts, err := s.nr.ListPublished(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		s.EnrichMediaURLs(post)
	}
	return posts, nil
}

// DeletePost removes the row and then the media objects. Storage
// failures are logged, not returned: the row is already gone.
func (s *newsfeedService) DeletePost(ctx context.Context, tenantID, postID string) error {
	post, err := s.nr.GetByID(ctx, tenantID, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}

	if err := s.nr.Remove(ctx, tenantID, postID); err != nil {
		return err
	}

	keys := append([]string{}, post.ImageKeys...)
	if post.ImageKey != "" {
		keys = append(keys, post.ImageKey)
	}
	if post.VideoKey != "" {
		keys = append(keys, post.VideoKey)
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			slog.Info(err.Error())
		}
	}
	return nil
}

// UploadMedia stores a media file after sniffing its real type; only
// images and videos are accepted regardless of the file extension.
func (s *newsfeedService) UploadMedia(ctx context.Context, tenantID, fileName string, data []byte) (*transfer.UploadURLResponse, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, err
	}
	isImage := filetype.IsImage(data)
	isVideo := filetype.IsVideo(data)
	if !isImage && !isVideo {
		slog.Error("rejected media upload", "file", fileName, "detected", kind.MIME.Value)
		return nil, ErrInvalidMedia
	}

	key, err := s.mediaKey(tenantID, fileName, isVideo)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Upload(ctx, key, data, kind.MIME.Value); err != nil {
		return nil, err
	}
	return &transfer.UploadURLResponse{
		Key:       key,
		PublicURL: s.storage.PublicURL(key),
	}, nil
}

// CreateUploadURL hands out a presigned PUT URL so large files go to
// storage directly instead of through the API.
func (s *newsfeedService) CreateUploadURL(ctx context.Context, tenantID string, req *transfer.UploadURLRequest) (*transfer.UploadURLResponse, error) {
	isVideo := strings.HasPrefix(req.FileType, "video/")
	if !isVideo && !strings.HasPrefix(req.FileType, "image/") {
		return nil, ErrInvalidMedia
	}

	key, err := s.mediaKey(tenantID, req.FileName, isVideo)
	if err != nil {
		return nil, err
	}
	uploadURL, err := s.storage.PresignUpload(ctx, key, req.FileType)
	if err != nil {
		return nil, err
	}
	return &transfer.UploadURLResponse{
		UploadURL: uploadURL,
		Key:       key,
		PublicURL: s.storage.PublicURL(key),
	}, nil
}

func (s *newsfeedService) mediaKey(tenantID, fileName string, isVideo bool) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	prefix := "images"
	if isVideo {
		prefix = "videos"
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", tenantID, prefix, id, ext), nil
}

// EnrichMediaURLs derives the public CDN URLs from the stored object
// keys. Runs on every read path so clients never build URLs themselves.
func (s *newsfeedService) EnrichMediaURLs(post *models.NewsfeedPost) {
	if post.ImageKey != "" && post.ImageURL == "" {
		post.ImageURL = s.storage.PublicURL(post.ImageKey)
	}
	if len(post.ImageKeys) > 0 && len(post.ImageURLs) == 0 {
		for _, key := range post.ImageKeys {
			post.ImageURLs = append(post.ImageURLs, s.storage.PublicURL(key))
		}
	}
	if post.ImageURL == "" && len(post.ImageURLs) > 0 {
		post.ImageURL = post.ImageURLs[0]
	}
	if post.VideoKey != "" && post.VideoURL == "" {
		post.VideoURL = s.storage.PublicURL(post.VideoKey)
	}
}

// dispatch is best-effort: the post is saved either way, and per-channel
// failures are reported back in the results rather than as an error.
func (s *newsfeedService) dispatch(ctx context.Context, tenantID string, post *models.NewsfeedPost, channels []string) []models.DispatchResult {
	results, err := s.dispatcher.Dispatch(ctx, tenantID, post, channels)
	if err != nil {
		slog.Error("crosspost dispatch failed", "post_id", post.PostID, "error", err)
		return nil
	}
	return results
}

func validatePost(req *transfer.PostCreation) error {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return ErrInvalidPost
	}
	if len(req.Tags) > models.MaxPostTags {
		return ErrTooManyTags
	}
	switch req.Status {
	case "", models.PostStatusDraft, models.PostStatusPublished:
	default:
		return ErrInvalidStatus
	}
	return nil
}

func applyPostFields(post *models.NewsfeedPost, req *transfer.PostCreation) {
	post.Title = req.Title
	post.Description = req.Description
	post.ImageKey = req.ImageKey
	post.ImageKeys = req.ImageKeys
	post.ImageURLs = req.ImageURLs
	post.VideoKey = req.VideoKey
	post.ExternalLink = req.ExternalLink
	post.Location = req.Location
	post.LocationURL = req.LocationURL
	post.IsShort = req.IsShort
	post.Tags = req.Tags
}
