package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/creatorhub/crosspost-api/internal/models"
)

type memSettingsStore struct {
	mu     sync.Mutex
	docs   map[string]json.RawMessage
	failOn map[string]error
}

func newMemSettingsStore() *memSettingsStore {
	return &memSettingsStore{docs: map[string]json.RawMessage{}, failOn: map[string]error{}}
}

func (s *memSettingsStore) set(tenantID, channelID, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[tenantID+"/"+channelID] = json.RawMessage(doc)
}

func (s *memSettingsStore) Load(ctx context.Context, tenantID, channelID string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[channelID]; ok {
		return nil, err
	}
	if doc, ok := s.docs[tenantID+"/"+channelID]; ok {
		return doc, nil
	}
	return json.RawMessage(`{"enabled":false}`), nil
}

func (s *memSettingsStore) Store(ctx context.Context, tenantID, channelID string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[tenantID+"/"+channelID] = raw
	return nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	records []*models.DispatchRecord
}

func (r *memHistoryRepo) Create(ctx context.Context, rec *models.DispatchRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return int64(len(r.records)), nil
}

func (r *memHistoryRepo) ListByPostID(ctx context.Context, tenantID, postID string) ([]*models.DispatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DispatchRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.PostID == postID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (f *fakeSender) Send(ctx context.Context, settings json.RawMessage, post *models.NewsfeedPost) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fail
}

func newTestDispatcher(store SettingsStore, history *memHistoryRepo, senders map[string]Sender) *Dispatcher {
	return &Dispatcher{settings: store, history: history, senders: senders, workers: 4}
}

func resultFor(results []models.DispatchResult, channelID string) *models.DispatchResult {
	for i := range results {
		if results[i].Channel == channelID {
			return &results[i]
		}
	}
	return nil
}

func publishedPost() *models.NewsfeedPost {
	return &models.NewsfeedPost{
		PostID:      "p1",
		TenantID:    "t1",
		Title:       "Hello",
		Description: "World",
		Status:      models.PostStatusPublished,
	}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unpublished post", func(t *testing.T) {
		d := newTestDispatcher(newMemSettingsStore(), &memHistoryRepo{}, map[string]Sender{})
		post := publishedPost()
		post.Status = models.PostStatusDraft

		if _, err := d.Dispatch(ctx, "t1", post, nil); err == nil {
			t.Error("expected error for draft post")
		}
		if _, err := d.Dispatch(ctx, "t1", nil, nil); err == nil {
			t.Error("expected error for nil post")
		}
	})

	t.Run("unconfigured channels are skipped", func(t *testing.T) {
		telegram := &fakeSender{}
		d := newTestDispatcher(newMemSettingsStore(), &memHistoryRepo{}, map[string]Sender{
			models.ChannelTelegram: telegram,
		})

		results, err := d.Dispatch(ctx, "t1", publishedPost(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if telegram.calls != 0 {
			t.Error("sender called without credentials")
		}
		res := resultFor(results, models.ChannelTelegram)
		if res == nil || res.Outcome != models.DispatchOutcomeSkipped {
			t.Errorf("telegram result = %+v, want skipped", res)
		}
	})

	t.Run("configured channel receives post", func(t *testing.T) {
		store := newMemSettingsStore()
		store.set("t1", models.ChannelTelegram, `{"enabled":true,"botToken":"abc","chatId":"42"}`)
		telegram := &fakeSender{}
		history := &memHistoryRepo{}
		d := newTestDispatcher(store, history, map[string]Sender{models.ChannelTelegram: telegram})

		results, err := d.Dispatch(ctx, "t1", publishedPost(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if telegram.calls != 1 {
			t.Errorf("sender calls = %d, want 1", telegram.calls)
		}
		res := resultFor(results, models.ChannelTelegram)
		if res == nil || res.Outcome != models.DispatchOutcomeSuccess {
			t.Errorf("telegram result = %+v, want success", res)
		}

		records, _ := history.ListByPostID(ctx, "t1", "p1")
		if len(records) == 0 {
			t.Error("no dispatch history written")
		}
	})

	t.Run("selection restricts selectable channels only", func(t *testing.T) {
		store := newMemSettingsStore()
		store.set("t1", models.ChannelTelegram, `{"enabled":true,"botToken":"abc","chatId":"42"}`)
		store.set("t1", models.ChannelDiscord, `{"enabled":true,"webhookUrl":"https://discord.test/hook"}`)
		store.set("t1", models.ChannelWhatsApp, `{"enabled":true,"phoneNumberId":"1","whatsappNumber":"2"}`)
		telegram := &fakeSender{}
		discord := &fakeSender{}
		whatsapp := &fakeSender{}
		d := newTestDispatcher(store, &memHistoryRepo{}, map[string]Sender{
			models.ChannelTelegram: telegram,
			models.ChannelDiscord:  discord,
			models.ChannelWhatsApp: whatsapp,
		})

		results, err := d.Dispatch(ctx, "t1", publishedPost(), []string{models.ChannelTelegram})
		if err != nil {
			t.Fatal(err)
		}
		if telegram.calls != 1 {
			t.Error("selected channel was not sent")
		}
		if discord.calls != 0 {
			t.Error("unselected channel was sent")
		}
		// Broadcast channels ignore the selection.
		if whatsapp.calls != 1 {
			t.Error("broadcast channel skipped by selection")
		}
		res := resultFor(results, models.ChannelDiscord)
		if res == nil || res.Detail != "not selected" {
			t.Errorf("discord result = %+v", res)
		}
	})

	t.Run("one failing channel never blocks the rest", func(t *testing.T) {
		store := newMemSettingsStore()
		store.set("t1", models.ChannelTelegram, `{"enabled":true,"botToken":"abc","chatId":"42"}`)
		store.set("t1", models.ChannelDiscord, `{"enabled":true,"webhookUrl":"https://discord.test/hook"}`)
		telegram := &fakeSender{fail: errors.New("api down")}
		discord := &fakeSender{}
		d := newTestDispatcher(store, &memHistoryRepo{}, map[string]Sender{
			models.ChannelTelegram: telegram,
			models.ChannelDiscord:  discord,
		})

		results, err := d.Dispatch(ctx, "t1", publishedPost(), nil)
		if err != nil {
			t.Fatal(err)
		}
		res := resultFor(results, models.ChannelTelegram)
		if res == nil || res.Outcome != models.DispatchOutcomeFailed {
			t.Errorf("telegram result = %+v, want failed", res)
		}
		res = resultFor(results, models.ChannelDiscord)
		if res == nil || res.Outcome != models.DispatchOutcomeSuccess {
			t.Errorf("discord result = %+v, want success", res)
		}
	})

	t.Run("unreadable settings skip only that channel", func(t *testing.T) {
		store := newMemSettingsStore()
		store.set("t1", models.ChannelDiscord, `{"enabled":true,"webhookUrl":"https://discord.test/hook"}`)
		store.failOn[models.ChannelTelegram] = errors.New("decrypt failed")
		telegram := &fakeSender{}
		discord := &fakeSender{}
		d := newTestDispatcher(store, &memHistoryRepo{}, map[string]Sender{
			models.ChannelTelegram: telegram,
			models.ChannelDiscord:  discord,
		})

		results, err := d.Dispatch(ctx, "t1", publishedPost(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if telegram.calls != 0 {
			t.Error("sender called despite unreadable settings")
		}
		res := resultFor(results, models.ChannelTelegram)
		if res == nil || res.Outcome != models.DispatchOutcomeSkipped || res.Detail != "settings unavailable" {
			t.Errorf("telegram result = %+v, want settings-unavailable skip", res)
		}
		if discord.calls != 1 {
			t.Error("healthy channel blocked by the broken one")
		}
		res = resultFor(results, models.ChannelDiscord)
		if res == nil || res.Outcome != models.DispatchOutcomeSuccess {
			t.Errorf("discord result = %+v, want success", res)
		}
	})

	t.Run("post filter skips unsuitable posts", func(t *testing.T) {
		store := newMemSettingsStore()
		store.set("t1", models.ChannelInstagram, `{"enabled":true,"accessToken":"tok","accountId":"1"}`)
		instagram := &fakeSender{}
		d := newTestDispatcher(store, &memHistoryRepo{}, map[string]Sender{models.ChannelInstagram: instagram})

		// Text-only post: Instagram requires media.
		results, err := d.Dispatch(ctx, "t1", publishedPost(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if instagram.calls != 0 {
			t.Error("media-only channel received a text post")
		}
		res := resultFor(results, models.ChannelInstagram)
		if res == nil || res.Detail != "post not suitable" {
			t.Errorf("instagram result = %+v", res)
		}
	})
}

func TestIncrementPostCount(t *testing.T) {
	ctx := context.Background()
	today := time.Now().UTC().Format("2006-01-02")

	t.Run("first post of the day", func(t *testing.T) {
		store := newMemSettingsStore()
		d := newTestDispatcher(store, &memHistoryRepo{}, nil)

		d.incrementPostCount(ctx, "t1", models.ChannelTelegram, json.RawMessage(`{"enabled":true}`))

		raw, _ := store.Load(ctx, "t1", models.ChannelTelegram)
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatal(err)
		}
		if n, _ := cfg["postsToday"].(float64); n != 1 {
			t.Errorf("postsToday = %v, want 1", cfg["postsToday"])
		}
		if cfg["postsLastReset"] != today {
			t.Errorf("postsLastReset = %v, want %s", cfg["postsLastReset"], today)
		}
	})

	t.Run("stale counter resets", func(t *testing.T) {
		store := newMemSettingsStore()
		d := newTestDispatcher(store, &memHistoryRepo{}, nil)

		doc := `{"enabled":true,"postsToday":7,"postsLastReset":"2020-01-01"}`
		d.incrementPostCount(ctx, "t1", models.ChannelTelegram, json.RawMessage(doc))

		raw, _ := store.Load(ctx, "t1", models.ChannelTelegram)
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatal(err)
		}
		if n, _ := cfg["postsToday"].(float64); n != 1 {
			t.Errorf("postsToday = %v, want 1 after reset", cfg["postsToday"])
		}
	})

	t.Run("same-day counter increments", func(t *testing.T) {
		store := newMemSettingsStore()
		d := newTestDispatcher(store, &memHistoryRepo{}, nil)

		doc := `{"enabled":true,"postsToday":2,"postsLastReset":"` + today + `"}`
		d.incrementPostCount(ctx, "t1", models.ChannelTelegram, json.RawMessage(doc))

		raw, _ := store.Load(ctx, "t1", models.ChannelTelegram)
		var cfg map[string]any
		if err := json.Unmarshal(raw, &cfg); err != nil {
			t.Fatal(err)
		}
		if n, _ := cfg["postsToday"].(float64); n != 3 {
			t.Errorf("postsToday = %v, want 3", cfg["postsToday"])
		}
	})
}
