package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSAdapterSend(t *testing.T) {
	t.Run("posts the message and returns the provider id", func(t *testing.T) {
		var got map[string]string
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "sms-42"})
		}))
		defer srv.Close()

		adapter := NewSMSAdapter(srv.URL, "secret-token", "+4930111111")
		res := adapter.Send(context.Background(), "+4915771234567", "please clock in")

		require.True(t, res.Success)
		assert.Equal(t, "sms-42", res.ProviderMessageID)
		assert.Equal(t, "Bearer secret-token", auth)
		assert.Equal(t, "+4915771234567", got["to"])
		assert.Equal(t, "+4930111111", got["from"])
		assert.Equal(t, "please clock in", got["body"])
	})

	t.Run("a rejected request becomes a failed result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid destination number", http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		adapter := NewSMSAdapter(srv.URL, "secret-token", "+4930111111")
		res := adapter.Send(context.Background(), "bogus", "please clock in")

		require.False(t, res.Success)
		assert.ErrorContains(t, res.Err, "422")
		assert.ErrorContains(t, res.Err, "invalid destination number")
	})

	t.Run("an unreachable provider becomes a failed result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close() // connection refused from here on

		adapter := NewSMSAdapter(srv.URL, "secret-token", "+4930111111")
		res := adapter.Send(context.Background(), "+4915771234567", "please clock in")
		assert.False(t, res.Success)
		assert.Error(t, res.Err)
	})

	t.Run("a cancelled context aborts the dispatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		adapter := NewSMSAdapter(srv.URL, "secret-token", "+4930111111")
		res := adapter.Send(ctx, "+4915771234567", "please clock in")
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, context.Canceled)
	})

	t.Run("a missing response body still counts as delivered", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		adapter := NewSMSAdapter(srv.URL, "secret-token", "+4930111111")
		res := adapter.Send(context.Background(), "+4915771234567", "please clock in")
		assert.True(t, res.Success)
		assert.Empty(t, res.ProviderMessageID)
	})
}

func TestVoiceAdapterSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "call-7"})
	}))
	defer srv.Close()

	adapter := NewVoiceAdapter(srv.URL, "secret-token", "+4930111111")
	res := adapter.Send(context.Background(), "+4915771234567", "this is an automated call")

	require.True(t, res.Success)
	assert.Equal(t, "call-7", res.ProviderMessageID)
	assert.Equal(t, "this is an automated call", got["say"])
}
