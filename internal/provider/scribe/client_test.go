package scribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgemedia/portal/internal/portal"
)

func TestClient_Start(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/transcripts", r.URL.Path)
		require.Equal(t, "secret-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "https://bucket/video.mp4", body["source_url"])
		require.Equal(t, "https://portal/api/callbacks/transcription/ORD-1", body["callback_url"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "tx-42"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "secret-key"})
	require.NoError(t, err)

	res, err := c.Start(context.Background(), "https://bucket/video.mp4", "https://portal/api/callbacks/transcription/ORD-1")
	require.NoError(t, err)
	require.Equal(t, "tx-42", res.Handle)
}

func TestClient_Poll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/transcripts/tx-42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "completed", "text": "hello world"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := c.Poll(context.Background(), "tx-42")
	require.NoError(t, err)
	require.Equal(t, portal.ProviderCompleted, res.Status)
	require.Equal(t, "hello world", res.Transcript)
}

func TestClient_Poll_InProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := c.Poll(context.Background(), "tx-1")
	require.NoError(t, err)
	require.Equal(t, portal.ProviderInProgress, res.Status)
	require.Empty(t, res.Transcript)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream melted", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Start(context.Background(), "https://x/y", "https://z")
	require.ErrorIs(t, err, portal.ErrProviderUnavailable)

	_, err = c.Poll(context.Background(), "tx-9")
	require.ErrorIs(t, err, portal.ErrProviderUnavailable)
}

func TestClient_NetworkError(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Start(context.Background(), "https://x/y", "https://z")
	require.ErrorIs(t, err, portal.ErrProviderUnavailable)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
