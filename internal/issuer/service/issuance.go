package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/chain"
	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/metadata"
	"github.com/aussiebroadwan/issuer/internal/issuer/risk"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/aussiebroadwan/issuer/pkg/idx"
	"github.com/aussiebroadwan/issuer/pkg/otelx"
	"github.com/aussiebroadwan/issuer/pkg/sigauth"
	"github.com/aussiebroadwan/issuer/pkg/slogx"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// AutoDelegation selects the caller's newest usable delegation.
const AutoDelegation = "auto"

// DefaultChainTimeout bounds submission plus confirmation.
const DefaultChainTimeout = chain.DefaultConfirmTimeout

// Pipeline states, in order. Recorded on spans and log lines.
const (
	StateAuthenticating     = "AUTHENTICATING"
	StateDelegationResolved = "DELEGATION_RESOLVED"
	StateUsageReserved      = "USAGE_RESERVED"
	StateRiskChecked        = "RISK_CHECKED"
	StateMetadataPublished  = "METADATA_PUBLISHED"
	StateChainSubmitted     = "CHAIN_SUBMITTED"
	StateComplete           = "COMPLETE"
)

// RiskAssessor is satisfied by *risk.Gate.
type RiskAssessor interface {
	Assess(ctx context.Context, recipient, issuer, credentialType string) (risk.Assessment, error)
}

// CredentialMinter is satisfied by *chain.Minter.
type CredentialMinter interface {
	Mint(ctx context.Context, req chain.MintRequest) (chain.MintResult, error)
}

// IssuanceService turns an authenticated issue request into a minted
// credential. Only Store.IncrementCallCount guards the usage cap.
type IssuanceService struct {
	Store     store.Store
	Sealer    Sealer
	Risk      RiskAssessor // nil skips the gate
	Publisher metadata.Publisher
	Minter    CredentialMinter

	ChainTimeout time.Duration
	Now          func() time.Time

	outcomesOnce sync.Once
	outcomes     metric.Int64Counter
}

type IssueCommand struct {
	DelegationID   string // explicit id, or "" / "auto"
	Recipient      string
	CredentialType string
	Name           string
	Description    string
	Image          string
	Claims         map[string]any
}

type IssueResult struct {
	CredentialID string
	DelegationID string
	TokenID      string
	TxHash       string
	MetadataURI  string
	Risk         *risk.Assessment
}

func (s *IssuanceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *IssuanceService) counter() metric.Int64Counter {
	s.outcomesOnce.Do(func() {
		c, err := otelx.Meter().Int64Counter("issuer.issuance.outcomes",
			metric.WithDescription("Issuance pipeline outcomes by terminal state"),
		)
		if err == nil {
			s.outcomes = c
		}
	})
	return s.outcomes
}

// Validate normalizes cmd in place.
func (cmd *IssueCommand) Validate() error {
	if !common.IsHexAddress(cmd.Recipient) {
		return invalid("recipient must be a 0x address")
	}
	cmd.Recipient = sigauth.NormalizeAddress(cmd.Recipient)
	cmd.CredentialType = strings.TrimSpace(cmd.CredentialType)
	if cmd.CredentialType == "" {
		return invalid("credential_type is required")
	}
	cmd.DelegationID = strings.TrimSpace(cmd.DelegationID)
	return nil
}

// Issue runs the pipeline. A call is consumed as soon as it is reserved and
// is not refunded when a later stage fails.
func (s *IssuanceService) Issue(ctx context.Context, issuer string, cmd IssueCommand) (res IssueResult, err error) {
	issuer = sigauth.NormalizeAddress(issuer)

	ctx, span := otelx.Tracer().Start(ctx, "issuance.issue",
		trace.WithAttributes(attribute.String("issuer", issuer)),
	)
	state := StateAuthenticating
	defer func() {
		outcome := StateComplete
		if err != nil {
			outcome = "FAILED_AT_" + state
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if c := s.counter(); c != nil {
			c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		}
		span.End()
	}()

	if err := cmd.Validate(); err != nil {
		return IssueResult{}, err
	}

	ctx = slogx.With(ctx, "issuer", issuer, "recipient", cmd.Recipient)
	l := slogx.FromContext(ctx)
	advance := func(next string, attrs ...any) {
		state = next
		span.AddEvent(next)
		l.Info("issuance "+strings.ToLower(next), attrs...)
	}

	// 1. Resolve the delegation
	d, err := s.resolve(ctx, issuer, cmd.DelegationID)
	if err != nil {
		return IssueResult{}, err
	}
	ctx = slogx.With(ctx, "delegation_id", d.ID)
	l = slogx.FromContext(ctx)
	span.SetAttributes(attribute.String("delegation_id", d.ID))
	advance(StateDelegationResolved)

	// 2. Reserve one call
	ok, err := s.Store.Delegations().IncrementCallCount(ctx, d.ID, s.now())
	if err != nil {
		l.Error("failed to reserve delegation call", "error", err)
		return IssueResult{}, err
	}
	if !ok {
		l.Warn("delegation reservation refused")
		return IssueResult{}, ErrUsageExhausted
	}
	advance(StateUsageReserved)

	// 3. Risk gate. Errors here never block.
	var assessment *risk.Assessment
	if s.Risk != nil {
		a, err := s.Risk.Assess(ctx, cmd.Recipient, issuer, cmd.CredentialType)
		if err != nil {
			l.Warn("risk gate unavailable, proceeding without assessment", "error", err)
		} else {
			assessment = &a
			if a.Level == risk.LevelHigh {
				l.Warn("issuance blocked by risk gate", "risk_score", a.Score, "red_flags", a.RedFlags)
				return IssueResult{}, &RiskRejectedError{Assessment: a}
			}
		}
	}
	if assessment != nil {
		advance(StateRiskChecked, "risk_level", assessment.Level, "risk_score", assessment.Score)
	} else {
		advance(StateRiskChecked, "risk_level", "skipped")
	}

	// 4. Publish metadata
	doc := metadata.NewDocument(metadata.DocumentInput{
		CredentialType: cmd.CredentialType,
		Issuer:         issuer,
		Recipient:      cmd.Recipient,
		Name:           cmd.Name,
		Description:    cmd.Description,
		Image:          cmd.Image,
		Claims:         cmd.Claims,
		IssuedAt:       s.now(),
	})
	uri, err := s.Publisher.Publish(ctx, doc)
	if err != nil {
		l.Error("metadata publish failed", "error", err, "retryable", metadata.IsRetryable(err))
		return IssueResult{}, &UpstreamError{Stage: StageMetadata, Err: err}
	}
	advance(StateMetadataPublished, "metadata_uri", uri)

	// 5. Submit the mint, detached from client cancellation
	permission, err := s.Sealer.Open(d.SealedPayload, []byte(d.ID))
	if err != nil {
		l.Error("failed to open delegation payload", "error", err)
		return IssueResult{}, err
	}

	timeout := s.ChainTimeout
	if timeout <= 0 {
		timeout = DefaultChainTimeout
	}
	chainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	minted, err := s.Minter.Mint(chainCtx, chain.MintRequest{
		PermissionContext: permission,
		Recipient:         common.HexToAddress(cmd.Recipient),
		CredentialType:    cmd.CredentialType,
		TokenURI:          uri,
	})
	if err != nil {
		l.Error("mint submission failed", "error", err)
		return IssueResult{}, &UpstreamError{Stage: StageChain, Err: err}
	}
	if !minted.TokenFound {
		l.Warn("no transfer log in receipt, recording placeholder token id", "tx_hash", minted.TxHash.Hex())
	}
	advance(StateChainSubmitted, "tx_hash", minted.TxHash.Hex(), "token_id", minted.TokenID)

	// 6. Record. The credential exists on chain whatever happens here.
	rec := domain.Issuance{
		ID:               idx.PrefixCredential.New().String(),
		DelegationID:     d.ID,
		IssuerAddress:    issuer,
		RecipientAddress: cmd.Recipient,
		CredentialType:   cmd.CredentialType,
		TokenID:          minted.TokenID,
		TxHash:           minted.TxHash.Hex(),
		MetadataURI:      uri,
		CreatedAt:        s.now().UTC(),
	}
	if assessment != nil {
		rec.RiskLevel = string(assessment.Level)
		rec.RiskScore = assessment.Score
	}
	if err := s.Store.Issuances().CreateIssuance(context.WithoutCancel(ctx), rec); err != nil {
		l.Error("failed to record issuance", "error", err, "tx_hash", rec.TxHash)
	}
	advance(StateComplete, "credential_id", rec.ID)

	return IssueResult{
		CredentialID: rec.ID,
		DelegationID: d.ID,
		TokenID:      rec.TokenID,
		TxHash:       rec.TxHash,
		MetadataURI:  uri,
		Risk:         assessment,
	}, nil
}

// resolve finds the delegation and checks ownership, revocation and expiry
// in that order, before anything is mutated.
func (s *IssuanceService) resolve(ctx context.Context, issuer, id string) (domain.Delegation, error) {
	l := slogx.FromContext(ctx)
	now := s.now()

	if id == "" || strings.EqualFold(id, AutoDelegation) {
		d, err := s.Store.Delegations().GetActiveDelegationByIssuer(ctx, issuer, now)
		if errors.Is(err, store.ErrNotFound) {
			return domain.Delegation{}, ErrDelegationNotFound
		}
		return d, err
	}

	d, err := s.Store.Delegations().GetDelegationByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Delegation{}, ErrDelegationNotFound
		}
		return domain.Delegation{}, err
	}

	switch {
	case d.IssuerAddress != issuer:
		l.Warn("delegation used by non-owner", "delegation_id", id)
		return domain.Delegation{}, ErrNotOwner
	case d.IsRevoked:
		return domain.Delegation{}, ErrDelegationRevoked
	case !now.Before(d.ExpiresAt):
		return domain.Delegation{}, ErrDelegationExpired
	}
	return d, nil
}

// GetCredential is the public verification read.
func (s *IssuanceService) GetCredential(ctx context.Context, id string) (domain.Issuance, error) {
	rec, err := s.Store.Issuances().GetIssuanceByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Issuance{}, ErrCredentialNotFound
	}
	return rec, err
}
