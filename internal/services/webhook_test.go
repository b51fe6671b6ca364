package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditWebhookSend(t *testing.T) {
	var received webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook := NewAuditWebhook(srv.URL)
	err := hook.Send(context.Background(), &AuditEvent{
		Title:  "Purchase",
		Fields: []AuditField{{Name: "item", Value: "Golden Wheel"}},
	})
	require.NoError(t, err)

	require.Len(t, received.Embeds, 1)
	assert.Equal(t, "Purchase", received.Embeds[0].Title)
	assert.NotEmpty(t, received.Embeds[0].Timestamp)
	assert.Equal(t, "Golden Wheel", received.Embeds[0].Fields[0].Value)
}

func TestAuditWebhookRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewAuditWebhook(srv.URL).Send(context.Background(), &AuditEvent{Title: "Grant"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAuditWebhookClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewAuditWebhook(srv.URL).Send(context.Background(), &AuditEvent{Title: "Grant"})
	assert.Error(t, err)
}

func TestAuditWebhookDisabled(t *testing.T) {
	var hook *AuditWebhook
	assert.NoError(t, hook.Send(context.Background(), &AuditEvent{Title: "x"}))
	assert.NoError(t, NewAuditWebhook("").Send(context.Background(), &AuditEvent{Title: "x"}))
}

func TestBotWithoutTokenIsNoop(t *testing.T) {
	bot, err := NewBot("")
	require.NoError(t, err)
	assert.False(t, bot.Enabled())
	assert.NoError(t, bot.SendDirectMessage(context.Background(), "1", "hi"))

	_, err = bot.MemberRoles(context.Background(), "g", "1")
	assert.ErrorIs(t, err, ErrBotDisabled)
}
