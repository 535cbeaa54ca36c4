package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phamtq/msg-delivery/internal/delivery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{BaseURL: srv.URL}, testLogger())
}

func TestClient_IsReady(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{
			name:   "gateway ready",
			status: http.StatusOK,
			body:   `{"ready":true}`,
			want:   true,
		},
		{
			name:   "gateway session down",
			status: http.StatusOK,
			body:   `{"ready":false}`,
			want:   false,
		},
		{
			name:   "gateway error status",
			status: http.StatusInternalServerError,
			body:   `{}`,
			want:   false,
		},
		{
			name:   "unparseable response",
			status: http.StatusOK,
			body:   `not json`,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/status", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			assert.Equal(t, tt.want, c.IsReady())
		})
	}
}

func TestClient_IsReady_Unreachable(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://127.0.0.1:1"}, testLogger())
	assert.False(t, c.IsReady())
}

func TestClient_RecipientExists(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantExists bool
		wantErr    bool
	}{
		{
			name:       "known recipient",
			status:     http.StatusOK,
			wantExists: true,
		},
		{
			name:       "unknown recipient",
			status:     http.StatusNotFound,
			wantExists: false,
		},
		{
			name:    "gateway failure is a channel error",
			status:  http.StatusBadGateway,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/contacts/5551234@c.us", r.URL.Path)
				w.WriteHeader(tt.status)
			}))

			exists, err := c.RecipientExists(context.Background(), "5551234@c.us")

			if tt.wantErr {
				require.Error(t, err)
				var chErr *domain.ChannelError
				assert.ErrorAs(t, err, &chErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantExists, exists)
			}
		})
	}
}

func TestClient_RecipientExists_ConnectionRefused(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://127.0.0.1:1"}, testLogger())

	_, err := c.RecipientExists(context.Background(), "5551234@c.us")

	require.Error(t, err)
	var chErr *domain.ChannelError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "recipient lookup", chErr.Op)
}

func TestClient_SendText(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.SendText(context.Background(), "5551234@c.us", "hello")

	require.NoError(t, err)
	assert.Equal(t, "5551234@c.us", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
}

func TestClient_SendText_GatewayError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := c.SendText(context.Background(), "5551234@c.us", "hello")

	var chErr *domain.ChannelError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "send text", chErr.Op)
}

func TestClient_SendText_RecipientGone(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	err := c.SendText(context.Background(), "5551234@c.us", "hello")

	require.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestClient_SendMedia(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/media", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := c.SendMedia(context.Background(), "5551234@c.us", domain.Media{
		MimeType: "image/png",
		Data:     "iVBORw0KGgo=",
		Caption:  "a picture",
	})

	require.NoError(t, err)
	assert.Equal(t, "5551234@c.us", got["chat_id"])
	assert.Equal(t, "image/png", got["mimetype"])
	assert.Equal(t, "iVBORw0KGgo=", got["data"])
	assert.Equal(t, "a picture", got["caption"])
}

func TestClient_SendMedia_OmitsEmptyCaption(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := c.SendMedia(context.Background(), "5551234@c.us", domain.Media{
		MimeType: "image/png",
		Data:     "iVBORw0KGgo=",
	})

	require.NoError(t, err)
	_, hasCaption := got["caption"]
	assert.False(t, hasCaption)
}
