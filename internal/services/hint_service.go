package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ciphersql/internal/config"
	"ciphersql/internal/models"
	"ciphersql/internal/observability"

	"github.com/google/uuid"
)

// Static hint texts.
const (
	HintGeneric = "Double-check your SQL syntax and column names."
	HintSyntax  = "Syntax Error: Check for missing commas or keywords."
	HintSchema  = "Schema Error: One of the tables or columns doesn't exist."
)

type HintRequest struct {
	AssignmentID string `json:"assignmentId"`
	SQL          string `json:"sql"`
	Error        string `json:"error"`
}

// HintAdvisor produces a one-sentence hint. It never fails: any problem
// results in a static hint.
type HintAdvisor interface {
	Hint(ctx context.Context, req HintRequest) string
}

// StaticHint picks a canned hint from the last error message.
func StaticHint(lastError string) string {
	switch {
	case strings.Contains(lastError, "syntax"):
		return HintSyntax
	case strings.Contains(lastError, "does not exist"):
		return HintSchema
	default:
		return HintGeneric
	}
}

type StaticAdvisor struct{}

func (StaticAdvisor) Hint(_ context.Context, req HintRequest) string {
	observability.HintsTotal.WithLabelValues("static").Inc()
	return StaticHint(req.Error)
}

// NewHintAdvisor returns the language-model advisor when an API key is
// configured and the static advisor otherwise.
func NewHintAdvisor(cfg config.HintConfig, assignments AssignmentLookup) HintAdvisor {
	if cfg.APIKey == "" {
		slog.Info("hint advisor: static (GROQ_API_KEY not set)")
		return StaticAdvisor{}
	}
	slog.Info("hint advisor: language model", "base_url", cfg.BaseURL, "model", cfg.Model)
	return NewLLMAdvisor(cfg, assignments, nil)
}

// LLMAdvisor asks an OpenAI-compatible chat completions endpoint for a hint.
type LLMAdvisor struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	assignments AssignmentLookup
}

// NewLLMAdvisor builds the advisor. A nil client gets one with the configured timeout.
func NewLLMAdvisor(cfg config.HintConfig, assignments AssignmentLookup, client *http.Client) *LLMAdvisor {
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &LLMAdvisor{
		httpClient:  client,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		assignments: assignments,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *LLMAdvisor) Hint(ctx context.Context, req HintRequest) string {
	fallback := StaticHint(req.Error)

	assignment, err := a.lookup(req.AssignmentID)
	if err != nil {
		slog.Warn("hint: assignment lookup failed, using static hint", "assignment", req.AssignmentID, "error", err)
		observability.HintsTotal.WithLabelValues("static").Inc()
		return fallback
	}

	text, err := a.complete(ctx, assignment, req)
	if err != nil {
		slog.Error("hint: completion failed, using static hint", "error", err)
		observability.HintsTotal.WithLabelValues("static").Inc()
		return fallback
	}

	observability.HintsTotal.WithLabelValues("llm").Inc()
	return text
}

func (a *LLMAdvisor) lookup(rawID string) (*models.Assignment, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrNotFound
	}
	return a.assignments.GetByID(id)
}

func (a *LLMAdvisor) complete(ctx context.Context, assignment *models.Assignment, req HintRequest) (string, error) {
	body, err := json.Marshal(buildChatRequest(a.model, assignment, req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to parse backend response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}

	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("backend returned an empty hint")
	}
	return text, nil
}

func buildChatRequest(model string, assignment *models.Assignment, req HintRequest) chatRequest {
	system := fmt.Sprintf(`You are a helpful SQL Tutor.
Context: The database contains tables [%s].
Rules:
1. Give a 1-sentence hint.
2. Do NOT provide the full SQL answer.
3. If the user has a syntax error, point it out.`, strings.Join(assignment.TableNames(), ", "))

	lastError := req.Error
	if lastError == "" {
		lastError = "None"
	}
	user := fmt.Sprintf("Question: \"%s\"\nStudent Query: \"%s\"\nError: \"%s\"", assignment.Question, req.SQL, lastError)

	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.6,
		MaxTokens:   150,
	}
}
