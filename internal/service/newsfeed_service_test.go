package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	config "github.com/creatorhub/crosspost-api/configs"
	"github.com/creatorhub/crosspost-api/internal/models"
	"github.com/creatorhub/crosspost-api/internal/transfer"
)

func newTestNewsfeedService(nr *stubNewsfeedRepo, d PostDispatcher) NewsfeedService {
	cfg := config.Config{CDNDomain: "cdn.example.com"}
	return NewNewsfeedService(nr, NewStorageService(cfg), d)
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("draft by default, no dispatch", func(t *testing.T) {
		nr := &stubNewsfeedRepo{}
		d := &stubDispatcher{}
		s := newTestNewsfeedService(nr, d)

		post, results, err := s.CreatePost(ctx, "t1", &transfer.PostCreation{
			Title:       "Hello",
			Description: "World",
		}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if post.Status != models.PostStatusDraft {
			t.Errorf("status = %s, want draft", post.Status)
		}
		if d.calls != 0 {
			t.Error("draft was dispatched")
		}
		if results != nil {
			t.Errorf("results = %+v, want nil", results)
		}
	})

	t.Run("published post dispatches once", func(t *testing.T) {
		nr := &stubNewsfeedRepo{}
		d := &stubDispatcher{results: []models.DispatchResult{{Channel: "telegram", Outcome: models.DispatchOutcomeSuccess}}}
		s := newTestNewsfeedService(nr, d)

		_, results, err := s.CreatePost(ctx, "t1", &transfer.PostCreation{
			Title:       "Hello",
			Description: "World",
			Status:      models.PostStatusPublished,
		}, []string{"telegram"})
		if err != nil {
			t.Fatal(err)
		}
		if d.calls != 1 {
			t.Errorf("dispatch calls = %d, want 1", d.calls)
		}
		if len(results) != 1 {
			t.Errorf("results = %+v", results)
		}
	})

	t.Run("validation", func(t *testing.T) {
		s := newTestNewsfeedService(&stubNewsfeedRepo{}, &stubDispatcher{})

		cases := []struct {
			name string
			req  transfer.PostCreation
			want error
		}{
			{"missing title", transfer.PostCreation{Description: "d"}, ErrInvalidPost},
			{"missing description", transfer.PostCreation{Title: "t"}, ErrInvalidPost},
			{"whitespace title", transfer.PostCreation{Title: "   ", Description: "d"}, ErrInvalidPost},
			{"too many tags", transfer.PostCreation{Title: "t", Description: "d", Tags: []string{"a", "b", "c", "d", "e", "f"}}, ErrTooManyTags},
			{"bad status", transfer.PostCreation{Title: "t", Description: "d", Status: "archived"}, ErrInvalidStatus},
			{"scheduled status not settable directly", transfer.PostCreation{Title: "t", Description: "d", Status: models.PostStatusScheduled}, ErrInvalidStatus},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, _, err := s.CreatePost(ctx, "t1", &tc.req, nil)
				if !errors.Is(err, tc.want) {
					t.Errorf("err = %v, want %v", err, tc.want)
				}
			})
		}
	})

	t.Run("media urls derived from keys", func(t *testing.T) {
		nr := &stubNewsfeedRepo{}
		s := newTestNewsfeedService(nr, &stubDispatcher{})

		post, _, err := s.CreatePost(ctx, "t1", &transfer.PostCreation{
			Title:       "Hello",
			Description: "World",
			ImageKeys:   []string{"t1/images/a.jpg", "t1/images/b.jpg"},
			VideoKey:    "t1/videos/c.mp4",
		}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(post.ImageURLs) != 2 || !strings.Contains(post.ImageURLs[0], "t1/images/a.jpg") {
			t.Errorf("image urls = %v", post.ImageURLs)
		}
		if post.ImageURL == "" {
			t.Error("single image url not backfilled from list")
		}
		if post.VideoURL == "" {
			t.Error("video url missing")
		}
	})
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()

	seed := func() *stubNewsfeedRepo {
		return &stubNewsfeedRepo{posts: map[string]*models.NewsfeedPost{
			"p1": {PostID: "p1", TenantID: "t1", Title: "Old", Description: "Post", Status: models.PostStatusDraft},
		}}
	}

	t.Run("draft to published dispatches", func(t *testing.T) {
		nr := seed()
		d := &stubDispatcher{}
		s := newTestNewsfeedService(nr, d)

		_, _, err := s.UpdatePost(ctx, "t1", "p1", &transfer.PostCreation{
			Title: "New", Description: "Post", Status: models.PostStatusPublished,
		}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if d.calls != 1 {
			t.Errorf("dispatch calls = %d, want 1", d.calls)
		}
	})

	t.Run("editing a published post does not redispatch", func(t *testing.T) {
		nr := seed()
		nr.posts["p1"].Status = models.PostStatusPublished
		d := &stubDispatcher{}
		s := newTestNewsfeedService(nr, d)

		_, _, err := s.UpdatePost(ctx, "t1", "p1", &transfer.PostCreation{
			Title: "Edited", Description: "Post", Status: models.PostStatusPublished,
		}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if d.calls != 0 {
			t.Error("published post was redispatched on edit")
		}
	})

	t.Run("unknown post", func(t *testing.T) {
		s := newTestNewsfeedService(seed(), &stubDispatcher{})
		_, _, err := s.UpdatePost(ctx, "t1", "nope", &transfer.PostCreation{Title: "a", Description: "b"}, nil)
		if !errors.Is(err, ErrPostNotFound) {
			t.Errorf("err = %v, want ErrPostNotFound", err)
		}
	})

	t.Run("wrong tenant cannot touch the post", func(t *testing.T) {
		s := newTestNewsfeedService(seed(), &stubDispatcher{})
		_, _, err := s.UpdatePost(ctx, "t2", "p1", &transfer.PostCreation{Title: "a", Description: "b"}, nil)
		if !errors.Is(err, ErrPostNotFound) {
			t.Errorf("err = %v, want ErrPostNotFound", err)
		}
	})
}

func TestListPublished(t *testing.T) {
	ctx := context.Background()
	nr := &stubNewsfeedRepo{posts: map[string]*models.NewsfeedPost{
		"p1": {PostID: "p1", TenantID: "t1", Title: "A", Description: "x", Status: models.PostStatusPublished},
		"p2": {PostID: "p2", TenantID: "t1", Title: "B", Description: "x", Status: models.PostStatusDraft},
	}}
	s := newTestNewsfeedService(nr, &stubDispatcher{})

	posts, err := s.ListPublished(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 || posts[0].PostID != "p1" {
		t.Errorf("got %+v, want only p1", posts)
	}
}

func TestCreateUploadURL(t *testing.T) {
	ctx := context.Background()
	s := newTestNewsfeedService(&stubNewsfeedRepo{}, &stubDispatcher{})

	t.Run("rejects non-media types", func(t *testing.T) {
		_, err := s.CreateUploadURL(ctx, "t1", &transfer.UploadURLRequest{
			FileName: "doc.pdf", FileType: "application/pdf",
		})
		if !errors.Is(err, ErrInvalidMedia) {
			t.Errorf("err = %v, want ErrInvalidMedia", err)
		}
	})
}

func TestUploadMediaRejectsNonMedia(t *testing.T) {
	ctx := context.Background()
	s := newTestNewsfeedService(&stubNewsfeedRepo{}, &stubDispatcher{})

	// A %PDF header: neither image nor video.
	_, err := s.UploadMedia(ctx, "t1", "doc.pdf", []byte("%PDF-1.4 ......"))
	if !errors.Is(err, ErrInvalidMedia) {
		t.Errorf("err = %v, want ErrInvalidMedia", err)
	}
}
