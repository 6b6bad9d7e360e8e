package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creatorhub/crosspost-api/internal/models"
)

func TestCaptionText(t *testing.T) {
	post := &models.NewsfeedPost{
		Title:       "Opening hours",
		Description: "We open at 9.",
		Location:    "Main street 1",
		Tags:        []string{"news", "update"},
	}

	caption := captionText(post)
	for _, want := range []string{"📢 Opening hours", "We open at 9.", "📍 Main street 1", "#news #update"} {
		if !strings.Contains(caption, want) {
			t.Errorf("caption missing %q:\n%s", want, caption)
		}
	}
}

func TestTelegramBuildMessage(t *testing.T) {
	s := &TelegramSender{}

	t.Run("escapes html in user content", func(t *testing.T) {
		post := &models.NewsfeedPost{
			Title:       "Q&A <live>",
			Description: "1 < 2",
		}
		msg := s.buildMessage(post)
		if !strings.Contains(msg, "<b>Q&amp;A &lt;live&gt;</b>") {
			t.Errorf("title not escaped: %s", msg)
		}
		if !strings.Contains(msg, "1 &lt; 2") {
			t.Errorf("description not escaped: %s", msg)
		}
	})

	t.Run("links and hashtags", func(t *testing.T) {
		post := &models.NewsfeedPost{
			Title:        "Hello",
			Description:  "World",
			ExternalLink: "https://example.com/post",
			LocationURL:  "https://maps.example.com/x",
			Location:     "Somewhere",
			Tags:         []string{"a"},
		}
		msg := s.buildMessage(post)
		if !strings.Contains(msg, `<a href="https://example.com/post">Read more</a>`) {
			t.Errorf("external link missing: %s", msg)
		}
		if !strings.Contains(msg, `<a href="https://maps.example.com/x">Map</a>`) {
			t.Errorf("map link missing: %s", msg)
		}
		if !strings.HasSuffix(msg, "#a") {
			t.Errorf("hashtags missing: %s", msg)
		}
	})
}

func TestMediaGroupItems(t *testing.T) {
	t.Run("video leads the album", func(t *testing.T) {
		media := mediaGroupItems("caption", "https://cdn.example.com/v.mp4", []string{
			"https://cdn.example.com/a.jpg",
			"https://cdn.example.com/b.jpg",
		})
		if len(media) != 3 {
			t.Fatalf("got %d items, want 3", len(media))
		}
		if media[0]["type"] != "video" || media[0]["media"] != "https://cdn.example.com/v.mp4" {
			t.Errorf("first item is not the video: %v", media[0])
		}
		if media[0]["caption"] != "caption" {
			t.Errorf("caption not on the leading item: %v", media[0])
		}
		for i, item := range media[1:] {
			if item["type"] != "photo" {
				t.Errorf("item %d type = %v, want photo", i+1, item["type"])
			}
			if _, ok := item["caption"]; ok {
				t.Errorf("item %d carries a duplicate caption", i+1)
			}
		}
	})

	t.Run("images only captions the first photo", func(t *testing.T) {
		media := mediaGroupItems("caption", "", []string{
			"https://cdn.example.com/a.jpg",
			"https://cdn.example.com/b.jpg",
		})
		if len(media) != 2 {
			t.Fatalf("got %d items, want 2", len(media))
		}
		if media[0]["caption"] != "caption" {
			t.Errorf("caption not on the first photo: %v", media[0])
		}
		if _, ok := media[1]["caption"]; ok {
			t.Errorf("second photo carries a duplicate caption")
		}
	})
}

func TestSignalSendPrefersVideo(t *testing.T) {
	videoBytes := []byte("mp4-payload")
	imageBytes := []byte("jpeg-payload")

	var sent map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/video.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			w.Write(videoBytes)
		case "/image.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(imageBytes)
		case "/v2/send":
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &sent); err != nil {
				t.Errorf("send body not json: %v", err)
			}
			w.Write([]byte(`{"timestamp":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	post := &models.NewsfeedPost{
		PostID:      "p1",
		Title:       "Both media",
		Description: "Video and image attached.",
		Status:      models.PostStatusPublished,
		VideoURL:    server.URL + "/video.mp4",
		ImageURLs:   []string{server.URL + "/image.jpg"},
	}
	settings := json.RawMessage(`{"enabled":true,"apiUrl":"` + server.URL + `","phoneNumber":"+4912345","groupId":"group.abc"}`)

	sender := &SignalSender{Client: server.Client()}
	if err := sender.Send(context.Background(), settings, post); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	attachments, ok := sent["base64_attachments"].([]any)
	if !ok || len(attachments) != 1 {
		t.Fatalf("got %d attachments, want 1: %v", len(attachments), sent["base64_attachments"])
	}
	data, err := base64.StdEncoding.DecodeString(attachments[0].(string))
	if err != nil {
		t.Fatalf("attachment not base64: %v", err)
	}
	if string(data) != string(videoBytes) {
		t.Errorf("attached %q, want the video bytes %q", data, videoBytes)
	}
}

func TestParseFacets(t *testing.T) {
	text := "Read https://example.com/a now #go"
	facets := parseFacets(text)
	if len(facets) != 2 {
		t.Fatalf("got %d facets, want 2", len(facets))
	}

	link := facets[0]
	idx := link["index"].(map[string]int)
	if text[idx["byteStart"]:idx["byteEnd"]] != "https://example.com/a" {
		t.Errorf("link range wrong: %q", text[idx["byteStart"]:idx["byteEnd"]])
	}

	tag := facets[1]
	features := tag["features"].([]map[string]any)
	if features[0]["tag"] != "go" {
		t.Errorf("tag = %v, want go", features[0]["tag"])
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 300); got != "short" {
		t.Errorf("short text modified: %q", got)
	}
	long := strings.Repeat("ä", 400)
	got := truncateRunes(long, 300)
	if runes := []rune(got); len(runes) != 300 {
		t.Errorf("truncated to %d runes, want 300", len(runes))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("missing ellipsis")
	}
}

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"abcXYZ019": "abcXYZ019",
		"a b":       "a%20b",
		"a*b":       "a%2Ab",
		"a~b":       "a~b",
		"a&b=c":     "a%26b%3Dc",
		"ünïcode":   "%C3%BCn%C3%AFcode",
	}
	for in, want := range cases {
		if got := percentEncode(in); got != want {
			t.Errorf("percentEncode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOAuth1HeaderShape(t *testing.T) {
	settings := models.XTwitterSettings{
		APIKey:            "ck",
		APISecret:         "cs",
		AccessToken:       "at",
		AccessTokenSecret: "as",
	}
	header := oauth1Header("POST", "https://api.twitter.com/2/tweets", nil, settings)

	if !strings.HasPrefix(header, "OAuth ") {
		t.Fatalf("unexpected prefix: %s", header)
	}
	for _, part := range []string{
		`oauth_consumer_key="ck"`,
		`oauth_token="at"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_version="1.0"`,
		"oauth_signature=",
		"oauth_nonce=",
		"oauth_timestamp=",
	} {
		if !strings.Contains(header, part) {
			t.Errorf("header missing %s: %s", part, header)
		}
	}
}

func TestRegistryConsistency(t *testing.T) {
	seen := map[string]bool{}
	for _, desc := range Registry() {
		if desc.ID == "" || desc.Name == "" {
			t.Errorf("descriptor missing id or name: %+v", desc)
		}
		if seen[desc.ID] {
			t.Errorf("duplicate channel id %s", desc.ID)
		}
		seen[desc.ID] = true
		if desc.Eligible == nil {
			t.Errorf("%s has no eligibility check", desc.ID)
		}
	}

	if Lookup("telegram") == nil {
		t.Error("telegram lookup failed")
	}
	if Lookup("myspace") != nil {
		t.Error("unknown channel resolved")
	}
}
