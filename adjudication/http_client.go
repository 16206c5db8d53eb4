package adjudication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/arena-escrow/models"
)

// ErrClientError - оракул отклонил запрос (4xx), повтор не поможет.
var ErrClientError = errors.New("adjudicator rejected the request")

const maxResponseSize = 1 << 20

// URLResolver превращает ключ доказательства в ссылку, доступную оракулу.
type URLResolver func(proofRef string) string

type checkRequest struct {
	ProofRef string `json:"proof_ref"`
	ProofURL string `json:"proof_url"`
}

type checkResponse struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
}

// HTTPClient - клиент внешнего оракула результата. Таймауты и повторы задаёт вызывающий через ctx.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	resolve    URLResolver
	logger     *slog.Logger
}

func NewHTTPClient(endpoint, apiKey string, resolve URLResolver, logger *slog.Logger) *HTTPClient {
	if resolve == nil {
		resolve = func(ref string) string { return ref }
	}
	return &HTTPClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		resolve:    resolve,
		logger:     logger,
	}
}

func (c *HTTPClient) CheckResult(ctx context.Context, proofRef string) (models.Verdict, error) {
	body, err := json.Marshal(checkRequest{ProofRef: proofRef, ProofURL: c.resolve(proofRef)})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Verdict{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return models.Verdict{}, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 500:
		return models.Verdict{}, fmt.Errorf("server error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	default:
		return models.Verdict{}, fmt.Errorf("%w (status %d): %s", ErrClientError, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed checkResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return models.Verdict{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	verdict := models.Verdict{
		Outcome:    normalizeOutcome(parsed.Verdict),
		Confidence: clamp(parsed.Confidence),
	}
	c.logger.DebugContext(ctx, "adjudicator answered",
		slog.String("proof_ref", proofRef),
		slog.String("verdict", string(verdict.Outcome)),
		slog.Float64("confidence", verdict.Confidence))
	return verdict, nil
}

// Неизвестные ответы считаются неопределёнными.
func normalizeOutcome(raw string) models.Outcome {
	switch models.Outcome(strings.ToUpper(strings.TrimSpace(raw))) {
	case models.OutcomeWin:
		return models.OutcomeWin
	case models.OutcomeLoss:
		return models.OutcomeLoss
	default:
		return models.OutcomeInconclusive
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
