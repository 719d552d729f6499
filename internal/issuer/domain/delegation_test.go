package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/stretchr/testify/require"
)

func TestDelegationStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	base := domain.Delegation{MaxCalls: 2, CallsUsed: 0, ExpiresAt: now.Add(time.Hour)}

	tests := []struct {
		name string
		mut  func(*domain.Delegation)
		want domain.DelegationStatus
	}{
		{"fresh", func(*domain.Delegation) {}, domain.DelegationActive},
		{"last call left", func(d *domain.Delegation) { d.CallsUsed = 1 }, domain.DelegationActive},
		{"exhausted", func(d *domain.Delegation) { d.CallsUsed = 2 }, domain.DelegationExhausted},
		{"expiry boundary", func(d *domain.Delegation) { d.ExpiresAt = now }, domain.DelegationExpired},
		{"expired and exhausted", func(d *domain.Delegation) { d.ExpiresAt = now.Add(-time.Second); d.CallsUsed = 2 }, domain.DelegationExpired},
		{"revoked beats everything", func(d *domain.Delegation) { d.IsRevoked = true; d.ExpiresAt = now.Add(-time.Hour) }, domain.DelegationRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mut(&d)
			require.Equal(t, tt.want, d.Status(now))
			require.Equal(t, tt.want == domain.DelegationActive, d.Usable(now))
		})
	}
}

func TestRemainingCalls(t *testing.T) {
	require.Equal(t, 3, domain.Delegation{MaxCalls: 5, CallsUsed: 2}.RemainingCalls())
	require.Equal(t, 0, domain.Delegation{MaxCalls: 5, CallsUsed: 7}.RemainingCalls())
}
