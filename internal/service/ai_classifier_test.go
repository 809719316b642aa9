package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pettycash/internal/models"
)

func oracleResponding(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Zero(t, req.Temperature)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Chart of accounts")

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newAIClassifier(t *testing.T, url string) *AIClassifier {
	t.Helper()
	accounts := newFakeAccountStore("5010", "5020", "5030")
	return NewAIClassifier(url, "test-key", "test-model", 2*time.Second, accounts, zap.NewNop())
}

func TestAIClassifierSuccess(t *testing.T) {
	server := oracleResponding(t, `{"account_code":"5020","confidence":0.8,"reasoning":"transport expense"}`)
	defer server.Close()

	classifier := newAIClassifier(t, server.URL)
	result, ok, err := classifier.Attempt(context.Background(), &models.ClassificationRequest{
		Description: "minibus hire for field visit",
		Amount:      "350.00",
		Department:  "Field Ops",
	})

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5020", result.AccountCode)
	assert.Equal(t, models.MethodAI, result.Method)
	assert.InDelta(t, 0.72, result.Confidence, 1e-9, "raw 0.8 discounted by the AI factor")
	assert.Equal(t, "transport expense", result.Reasoning)
}

func TestAIClassifierRejectsUnknownAccount(t *testing.T) {
	server := oracleResponding(t, `{"account_code":"9999","confidence":0.9,"reasoning":"made up"}`)
	defer server.Close()

	classifier := newAIClassifier(t, server.URL)
	_, _, err := classifier.Attempt(context.Background(), &models.ClassificationRequest{Description: "mystery expense"})

	require.Error(t, err)
	var unavailable *models.ClassificationUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Reason, "9999")
}

func TestAIClassifierMalformedPayload(t *testing.T) {
	server := oracleResponding(t, `not json at all`)
	defer server.Close()

	classifier := newAIClassifier(t, server.URL)
	_, _, err := classifier.Attempt(context.Background(), &models.ClassificationRequest{Description: "anything"})

	var unavailable *models.ClassificationUnavailable
	require.True(t, errors.As(err, &unavailable))
}

func TestAIClassifierMissingAccountCode(t *testing.T) {
	server := oracleResponding(t, `{"confidence":0.9}`)
	defer server.Close()

	classifier := newAIClassifier(t, server.URL)
	_, _, err := classifier.Attempt(context.Background(), &models.ClassificationRequest{Description: "anything"})

	var unavailable *models.ClassificationUnavailable
	require.True(t, errors.As(err, &unavailable))
}

func TestAIClassifierOracleErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	classifier := newAIClassifier(t, server.URL)
	_, _, err := classifier.Attempt(context.Background(), &models.ClassificationRequest{Description: "anything"})

	var unavailable *models.ClassificationUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Reason, "429")
}

func TestAIClassifierOracleUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	classifier := newAIClassifier(t, server.URL)
	_, _, err := classifier.Attempt(context.Background(), &models.ClassificationRequest{Description: "anything"})

	var unavailable *models.ClassificationUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, unavailable.Reason, "oracle call failed")
}
