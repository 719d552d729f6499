package risk

import (
	"context"
	"fmt"
	"strings"
)

// RuleAnalyzer is the deterministic scorer. It never fails.
type RuleAnalyzer struct{}

const ruleBaseScore = 50

func (RuleAnalyzer) Analyze(_ context.Context, f Facts) (Assessment, error) {
	score := ruleBaseScore
	flags := []string{}
	steps := []string{fmt.Sprintf("base %d", ruleBaseScore)}

	adjust := func(delta int, why string) {
		score += delta
		steps = append(steps, fmt.Sprintf("%s %+d", why, delta))
	}

	if f.PriorInteractions > 0 {
		adjust(-20, "prior interaction")
	}
	if f.IssuerInfo.Verified {
		adjust(-15, "verified issuer")
	}
	if f.History.TotalCredentials > 0 && f.History.RevokedCredentials == 0 {
		adjust(-10, "clean history")
	}
	if f.History.RevokedCredentials > 2 {
		adjust(25, "revocations")
		flags = append(flags, "Recipient has multiple revoked credentials")
	}
	if f.History.TotalCredentials == 0 && f.PriorInteractions == 0 {
		adjust(10, "no history")
		flags = append(flags, "New recipient with no credential history")
	}
	if !f.IssuerInfo.Verified {
		flags = append(flags, "Issuer is not verified")
	}

	score = clampScore(score)
	level := LevelForScore(score)

	return Assessment{
		Score:          score,
		Level:          level,
		Recommendation: recommendation(level),
		RedFlags:       flags,
		Source:         SourceRules,
		Explanation:    strings.Join(steps, "; "),
	}, nil
}

func recommendation(l Level) string {
	switch l {
	case LevelLow:
		return "Low risk; issuance may proceed."
	case LevelHigh:
		return "High risk; do not issue without manual review."
	default:
		return "Moderate risk; proceed with standard review."
	}
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
