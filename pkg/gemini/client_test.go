package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(config.GeminiConfig{Model: "m"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateReply(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Olá, "},{"text":"sou o Albert."}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(config.GeminiConfig{APIKey: "k-123", BaseURL: srv.URL + "/", Model: "test-model", Timeout: time.Second})
	require.NoError(t, err)

	reply, err := client.GenerateReply(context.Background(), "Que cursos têm?", "Você é o Albert")
	require.NoError(t, err)
	assert.Equal(t, "Olá, sou o Albert.", reply)
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "Você é o Albert", captured.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "Que cursos têm?", captured.Contents[0].Parts[0].Text)
}

func TestGenerateReplyErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("key") == "bad" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	bad, err := NewClient(config.GeminiConfig{APIKey: "bad", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)
	_, err = bad.GenerateReply(context.Background(), "oi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")

	empty, err := NewClient(config.GeminiConfig{APIKey: "good", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)
	_, err = empty.GenerateReply(context.Background(), "oi", "")
	assert.True(t, errors.Is(err, ErrEmptyReply))
}
