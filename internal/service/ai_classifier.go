package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pettycash/internal/models"
)

// AccountStore is the chart-of-accounts lookup the classifier validates
// suggestions against.
type AccountStore interface {
	GetByCode(ctx context.Context, code string) (*models.Account, error)
	ListActive(ctx context.Context) ([]*models.Account, error)
}

// AIClassifier sends unmatched descriptions to an external text-generation
// oracle constrained to return a structured account suggestion. It is the
// last cascade stage; failure here is ClassificationUnavailable, never a
// fabricated account.
type AIClassifier struct {
	apiURL   string
	apiKey   string
	model    string
	client   *http.Client
	accounts AccountStore
	logger   *zap.Logger
}

func NewAIClassifier(apiURL, apiKey, model string, timeout time.Duration, accounts AccountStore, logger *zap.Logger) *AIClassifier {
	return &AIClassifier{
		apiURL:   apiURL,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
		accounts: accounts,
		logger:   logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type suggestionPayload struct {
	AccountCode string  `json:"account_code"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

const classifyPrompt = `You are an accounting assistant. Assign the expense below to the single best account code from the chart of accounts.
Respond with JSON only: {"account_code": "<code>", "confidence": <0..1>, "reasoning": "<one sentence>"}.

Chart of accounts:
%s

Expense description: %s
Amount: %s
Department: %s`

// Attempt implements Classifier.
func (a *AIClassifier) Attempt(ctx context.Context, req *models.ClassificationRequest) (*models.ClassificationResult, bool, error) {
	accounts, err := a.chartOfAccounts(ctx)
	if err != nil {
		return nil, false, &models.ClassificationUnavailable{Reason: "chart of accounts unavailable", Err: err}
	}

	prompt := fmt.Sprintf(classifyPrompt, accounts, req.Description, orNA(req.Amount), orNA(req.Department))
	payload, err := a.call(ctx, prompt)
	if err != nil {
		return nil, false, err
	}

	// An account code the chart does not know is a malformed response.
	if _, err := a.accounts.GetByCode(ctx, payload.AccountCode); err != nil {
		return nil, false, &models.ClassificationUnavailable{
			Reason: fmt.Sprintf("oracle suggested unknown account %q", payload.AccountCode),
		}
	}

	return &models.ClassificationResult{
		AccountCode: payload.AccountCode,
		Confidence:  NormalizeAI(payload.Confidence),
		Method:      models.MethodAI,
		Reasoning:   payload.Reasoning,
	}, true, nil
}

func (a *AIClassifier) call(ctx context.Context, prompt string) (*suggestionPayload, error) {
	body, err := json.Marshal(chatRequest{
		Model:          a.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    0,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, &models.ClassificationUnavailable{Reason: "request encoding failed", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, &models.ClassificationUnavailable{Reason: "request build failed", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, &models.ClassificationUnavailable{Reason: "oracle call failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		a.logger.Warn("oracle returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))
		return nil, &models.ClassificationUnavailable{
			Reason: fmt.Sprintf("oracle returned status %d", resp.StatusCode),
		}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, &models.ClassificationUnavailable{Reason: "oracle response undecodable", Err: err}
	}
	if len(chat.Choices) == 0 {
		return nil, &models.ClassificationUnavailable{Reason: "oracle returned no choices"}
	}

	var payload suggestionPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return nil, &models.ClassificationUnavailable{Reason: "oracle payload malformed", Err: err}
	}
	if payload.AccountCode == "" {
		return nil, &models.ClassificationUnavailable{Reason: "oracle payload missing account_code"}
	}

	return &payload, nil
}

func (a *AIClassifier) chartOfAccounts(ctx context.Context) (string, error) {
	accounts, err := a.accounts.ListActive(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	for _, acct := range accounts {
		fmt.Fprintf(&buf, "%s  %s (%s)\n", acct.Code, acct.Name, acct.Type)
	}
	return buf.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
