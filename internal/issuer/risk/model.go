package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"
)

var (
	ErrModelThrottled = errors.New("risk: model call throttled")
	ErrModelStatus    = errors.New("risk: model returned non-2xx status")
	ErrModelOutput    = errors.New("risk: model output rejected")
)

// assessmentSchema is what the model must return.
const assessmentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["risk_score"],
  "properties": {
    "risk_score": {"type": "number"},
    "risk_level": {"type": "string"},
    "recommendation": {"type": "string"},
    "explanation": {"type": "string"},
    "red_flags": {"type": "array", "items": {"type": "string"}}
  }
}`

const systemPrompt = `You assess fraud risk for on-chain credential issuance.
Reply with a single JSON object and nothing else:
{"risk_score": 0-100, "risk_level": "LOW"|"MEDIUM"|"HIGH", "recommendation": string, "explanation": string, "red_flags": [string]}`

// ModelConfig points at any OpenAI-compatible chat completions endpoint.
type ModelConfig struct {
	BaseURL string // e.g. https://api.openai.com/v1
	APIKey  string
	Model   string
	Timeout time.Duration // per call, defaults to 10s
	RPS     float64       // local throttle, 0 disables
}

// ModelAnalyzer asks a language model for an assessment and validates the
// reply strictly. Any failure is returned so the gate can fall back.
type ModelAnalyzer struct {
	cfg     ModelConfig
	client  *http.Client
	limiter *rate.Limiter
	schema  *jsonschema.Schema
}

func NewModelAnalyzer(cfg ModelConfig) (*ModelAnalyzer, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("risk: model base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const schemaURL = "https://issuer.schemas.local/risk/assessment.schema.json"
	if err := c.AddResource(schemaURL, strings.NewReader(assessmentSchema)); err != nil {
		return nil, fmt.Errorf("risk: load schema: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("risk: compile schema: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(math.Ceil(cfg.RPS))))
	}

	return &ModelAnalyzer{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		schema:  schema,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelReply struct {
	RiskScore      float64  `json:"risk_score"`
	RiskLevel      string   `json:"risk_level"`
	Recommendation string   `json:"recommendation"`
	Explanation    string   `json:"explanation"`
	RedFlags       []string `json:"red_flags"`
}

func (m *ModelAnalyzer) Analyze(ctx context.Context, f Facts) (Assessment, error) {
	if m.limiter != nil && !m.limiter.Allow() {
		return Assessment{}, ErrModelThrottled
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	factsJSON, err := json.Marshal(f)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: marshal facts: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: m.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(factsJSON)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: marshal request: %w", err)
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: model request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Assessment{}, fmt.Errorf("%w: %d", ErrModelStatus, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&chat); err != nil {
		return Assessment{}, fmt.Errorf("%w: decode envelope: %v", ErrModelOutput, err)
	}
	if len(chat.Choices) == 0 {
		return Assessment{}, fmt.Errorf("%w: empty choices", ErrModelOutput)
	}

	return m.parse(chat.Choices[0].Message.Content)
}

// parse validates content against the schema, then clamps the score and
// defaults the level to MEDIUM.
func (m *ModelAnalyzer) parse(content string) (Assessment, error) {
	content = stripCodeFence(content)

	var doc any
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrModelOutput, err)
	}
	if err := m.schema.Validate(doc); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrModelOutput, err)
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrModelOutput, err)
	}

	if math.IsNaN(reply.RiskScore) || math.IsInf(reply.RiskScore, 0) {
		return Assessment{}, fmt.Errorf("%w: risk_score is not finite", ErrModelOutput)
	}

	level, ok := ParseLevel(reply.RiskLevel)
	if !ok {
		level = LevelMedium
	}
	flags := reply.RedFlags
	if flags == nil {
		flags = []string{}
	}

	return Assessment{
		Score:          modelScore(reply.RiskScore),
		Level:          level,
		Recommendation: reply.Recommendation,
		RedFlags:       flags,
		Source:         SourceModel,
		Explanation:    reply.Explanation,
	}, nil
}

// modelScore clamps before converting so out-of-range floats saturate.
func modelScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
