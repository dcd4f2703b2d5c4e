package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func generateSongBody(title, styleID string) string {
	return fmt.Sprintf(`{
		"title": "%s",
		"text": "soft rain over quiet streets",
		"music_style_id": "%s"
	}`, title, styleID)
}

func TestGenerateSong_Success(t *testing.T) {
	ta := setupApp(t)

	title := "Evening Rain " + uuid.New().String()
	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", generateSongBody(title, ta.styleID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "success" {
		t.Errorf("expected status 'success', got %v", result["status"])
	}

	data := envelopeData(t, result)
	info, ok := data["song_info"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'song_info' in data, got %v", data)
	}

	if info["song_info_id"] == nil || info["song_info_id"] == "" {
		t.Error("expected 'song_info_id' in response")
	}
	if info["status"] != "created" {
		t.Errorf("expected song status 'created', got %v", info["status"])
	}
	if info["music_style"] != "Pop" {
		t.Errorf("expected resolved style name 'Pop', got %v", info["music_style"])
	}

	melodyURL, _ := info["melody_url"].(string)
	if !strings.Contains(melodyURL, "/stream_melody/") {
		t.Errorf("expected melody stream URL, got %q", melodyURL)
	}
}

func TestGenerateSong_TextTooLong(t *testing.T) {
	ta := setupApp(t)

	longText := strings.Repeat("a", 250)
	body := fmt.Sprintf(`{
		"title": "Too Long %s",
		"text": "%s",
		"music_style_id": "%s"
	}`, uuid.New().String(), longText, ta.styleID)

	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestGenerateSong_MissingFields(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", `{"title": "only a title"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	if result["status"] != "error" {
		t.Errorf("expected status 'error', got %v", result["status"])
	}
}

func TestGenerateSong_UnknownStyle(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song",
		generateSongBody("Ghost Style "+uuid.New().String(), uuid.New().String()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	msg, _ := result["message"].(string)
	if !strings.Contains(msg, "style") {
		t.Errorf("expected style error message, got %q", msg)
	}
}

func TestGenerateSong_DuplicateTitle(t *testing.T) {
	ta := setupApp(t)

	title := "One Of A Kind " + uuid.New().String()
	body := generateSongBody(title, ta.styleID)

	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", body)
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodPost, "/generate_song", body)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestGetSong_Success(t *testing.T) {
	ta := setupApp(t)

	title := "Lookup Target " + uuid.New().String()
	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", generateSongBody(title, ta.styleID))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	created := parseJSON(t, resp)
	info := envelopeData(t, created)["song_info"].(map[string]interface{})
	songID := info["song_info_id"].(string)

	resp, err = doRequest(ta.app, http.MethodGet, "/songs/"+songID, "")
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	got := envelopeData(t, result)
	if got["song_info_id"] != songID {
		t.Errorf("expected song id %s, got %v", songID, got["song_info_id"])
	}
	if got["song_title"] != title {
		t.Errorf("expected title %q, got %v", title, got["song_title"])
	}
}

func TestGetSong_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/songs/"+uuid.New().String(), "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestListSongs(t *testing.T) {
	ta := setupApp(t)

	title := "Listed Song " + uuid.New().String()
	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", generateSongBody(title, ta.styleID))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodGet, "/songs?page=1&per_page=5", "")
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	songs, ok := envelopeData(t, result)["songs"].([]interface{})
	if !ok {
		t.Fatalf("expected 'songs' array in data")
	}
	if len(songs) == 0 {
		t.Error("expected at least one song in the listing")
	}
	if len(songs) > 5 {
		t.Errorf("expected at most 5 songs per page, got %d", len(songs))
	}
}

func TestDeleteSong(t *testing.T) {
	ta := setupApp(t)

	title := "Short Lived " + uuid.New().String()
	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", generateSongBody(title, ta.styleID))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	created := parseJSON(t, resp)
	info := envelopeData(t, created)["song_info"].(map[string]interface{})
	songID := info["song_info_id"].(string)

	resp, err = doRequest(ta.app, http.MethodDelete, "/songs/"+songID, "")
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	// The record is gone afterwards
	resp, err = doRequest(ta.app, http.MethodGet, "/songs/"+songID, "")
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestDeleteSong_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodDelete, "/songs/"+uuid.New().String(), "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}

func TestSearchSongs_MissingQuery(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/search_songs", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	msg, _ := result["message"].(string)
	if !strings.Contains(msg, "q") {
		t.Errorf("expected missing-parameter message, got %q", msg)
	}
}

func TestSearchSongs_FindsIndexedSong(t *testing.T) {
	ta := setupApp(t)

	title := "Search Target " + uuid.New().String()
	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", generateSongBody(title, ta.styleID))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	created := parseJSON(t, resp)
	info := envelopeData(t, created)["song_info"].(map[string]interface{})
	songID := info["song_info_id"].(string)

	// Index the lyric text directly; the worker is not running here.
	token := "needle" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := ta.search.Index(context.Background(), songID, "unique "+token+" lyric"); err != nil {
		t.Fatalf("failed to index song: %v", err)
	}

	resp, err = doRequest(ta.app, http.MethodGet, "/search_songs?q="+token, "")
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	matches, ok := envelopeData(t, result)["matching_songs"].([]interface{})
	if !ok {
		t.Fatalf("expected 'matching_songs' array in data")
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	match := matches[0].(map[string]interface{})
	if match["song_info_id"] != songID {
		t.Errorf("expected matched song %s, got %v", songID, match["song_info_id"])
	}
}

func TestSearchSongs_SkipsDeletedSong(t *testing.T) {
	ta := setupApp(t)

	title := "Deleted Before Search " + uuid.New().String()
	resp, err := doRequest(ta.app, http.MethodPost, "/generate_song", generateSongBody(title, ta.styleID))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	created := parseJSON(t, resp)
	info := envelopeData(t, created)["song_info"].(map[string]interface{})
	songID := info["song_info_id"].(string)

	token := "orphan" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := ta.search.Index(context.Background(), songID, token); err != nil {
		t.Fatalf("failed to index song: %v", err)
	}

	resp, err = doRequest(ta.app, http.MethodDelete, "/songs/"+songID, "")
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	readBody(t, resp)

	// The stale index entry must not surface as a match
	resp, err = doRequest(ta.app, http.MethodGet, "/search_songs?q="+token, "")
	if err != nil {
		t.Fatalf("search request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	matches, _ := envelopeData(t, result)["matching_songs"].([]interface{})
	if len(matches) != 0 {
		t.Errorf("expected no matches for deleted song, got %d", len(matches))
	}
}
