// Package risk classifies how likely a credential issuance is to be fraud.
// It only assesses; blocking on HIGH is the caller's decision.
package risk

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
)

type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// ParseLevel accepts any case. Unknown values report false.
func ParseLevel(s string) (Level, bool) {
	switch Level(upper(s)) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	}
	return "", false
}

// LevelForScore maps a clamped score onto the fixed thresholds.
func LevelForScore(score int) Level {
	switch {
	case score < 30:
		return LevelLow
	case score > 70:
		return LevelHigh
	default:
		return LevelMedium
	}
}

func clampScore(score int) int {
	return min(max(score, 0), 100)
}

// Source records which path produced an assessment.
type Source string

const (
	SourceModel   Source = "model"
	SourceRules   Source = "rules"
	SourceNeutral Source = "neutral"
)

// Assessment is returned to callers and never persisted in full.
type Assessment struct {
	Score          int      `json:"risk_score"`
	Level          Level    `json:"risk_level"`
	Recommendation string   `json:"recommendation"`
	RedFlags       []string `json:"red_flags"`
	Source         Source   `json:"source"`
	Explanation    string   `json:"explanation,omitempty"`
}

// IssuerInfo is the reputation side of the facts.
type IssuerInfo struct {
	Verified    bool `json:"verified"`
	TotalIssued int  `json:"total_issued"`
}

// Facts are everything an analyzer is allowed to look at.
type Facts struct {
	Recipient         string                  `json:"recipient"`
	Issuer            string                  `json:"issuer"`
	CredentialType    string                  `json:"credential_type"`
	History           domain.RecipientHistory `json:"recipient_history"`
	PriorInteractions int                     `json:"prior_interactions"`
	IssuerInfo        IssuerInfo              `json:"issuer_info"`
}

// DataSource answers read-only questions about addresses.
type DataSource interface {
	RecipientHistory(ctx context.Context, recipient string) (domain.RecipientHistory, error)
	PriorInteractions(ctx context.Context, issuer, recipient string) (int, error)
	IssuerInfo(ctx context.Context, issuer string) (IssuerInfo, error)
}

// Analyzer turns facts into an assessment.
type Analyzer interface {
	Analyze(ctx context.Context, f Facts) (Assessment, error)
}

// Neutral is what callers get when no facts could be gathered.
func Neutral(reason string) Assessment {
	return Assessment{
		Score:          50,
		Level:          LevelMedium,
		Recommendation: "Risk data unavailable; proceed with standard review.",
		RedFlags:       []string{reason},
		Source:         SourceNeutral,
		Explanation:    "No facts could be gathered; neutral score applied.",
	}
}

// Gate gathers facts and runs the model analyzer, falling back to rules on
// any failure. Assess only returns an error when ctx is already done.
type Gate struct {
	source      DataSource
	model       Analyzer
	rules       RuleAnalyzer
	dataTimeout time.Duration
}

type GateOption func(*Gate)

// WithModel enables the model-backed path.
func WithModel(a Analyzer) GateOption {
	return func(g *Gate) { g.model = a }
}

// WithDataTimeout bounds fact gathering. Defaults to 5s.
func WithDataTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.dataTimeout = d }
}

func NewGate(source DataSource, opts ...GateOption) *Gate {
	g := &Gate{source: source, dataTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var errNoSource = errors.New("risk: no data source configured")

func (g *Gate) Assess(ctx context.Context, recipient, issuer, credentialType string) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	log := slogx.FromContext(ctx)

	facts, err := g.gather(ctx, recipient, issuer, credentialType)
	if err != nil {
		log.Warn("risk data unavailable, using neutral assessment", "error", err)
		return Neutral("Risk data source unavailable"), nil
	}

	if g.model != nil {
		a, err := g.model.Analyze(ctx, facts)
		if err == nil {
			return a, nil
		}
		log.Warn("risk model failed, falling back to rules", "error", err)
	}

	return g.rules.Analyze(ctx, facts)
}

func (g *Gate) gather(ctx context.Context, recipient, issuer, credentialType string) (Facts, error) {
	if g.source == nil {
		return Facts{}, errNoSource
	}
	ctx, cancel := context.WithTimeout(ctx, g.dataTimeout)
	defer cancel()

	f := Facts{Recipient: recipient, Issuer: issuer, CredentialType: credentialType}

	var err error
	if f.History, err = g.source.RecipientHistory(ctx, recipient); err != nil {
		return Facts{}, err
	}
	if f.PriorInteractions, err = g.source.PriorInteractions(ctx, issuer, recipient); err != nil {
		return Facts{}, err
	}
	if f.IssuerInfo, err = g.source.IssuerInfo(ctx, issuer); err != nil {
		return Facts{}, err
	}
	return f, nil
}
