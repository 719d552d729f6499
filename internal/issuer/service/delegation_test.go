package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/pkg/cryptox"
	"github.com/aussiebroadwan/issuer/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestCreateDelegationDefaultsAndSeals(t *testing.T) {
	ctx := context.Background()
	f := newPipeline(t)

	d, err := f.delegations.CreateDelegation(ctx, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", CreateDelegationCommand{
		SmartAccountAddress: "0x1111111111111111111111111111111111111111",
		PermissionContext:   "0xdeadbeef",
	})
	require.NoError(t, err)

	_, err = idx.ParseKind(d.ID, idx.PrefixDelegation)
	require.NoError(t, err)
	require.Equal(t, issuerA, d.IssuerAddress)
	require.Equal(t, backend, d.BackendAddress)
	require.Equal(t, domain.DefaultMaxCalls, d.MaxCalls)
	require.Equal(t, testNow.Add(domain.DefaultLifetime), d.ExpiresAt)
	require.Zero(t, d.CallsUsed)
	require.Equal(t, cryptox.Digest([]byte{0xde, 0xad, 0xbe, 0xef}), d.PayloadDigest)
	require.NotContains(t, string(d.SealedPayload), "\xde\xad\xbe\xef")

	plain, err := f.delegations.Sealer.Open(d.SealedPayload, []byte(d.ID))
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, plain)

	// Sealed payload is bound to its delegation id.
	_, err = f.delegations.Sealer.Open(d.SealedPayload, []byte("dlg_other"))
	require.Error(t, err)

	active, err := f.delegations.GetActiveDelegation(ctx, issuerA)
	require.NoError(t, err)
	require.Equal(t, d.ID, active.ID)
}

func TestCreateDelegationValidation(t *testing.T) {
	ctx := context.Background()
	f := newPipeline(t)

	valid := CreateDelegationCommand{SmartAccountAddress: account, PermissionContext: "0x01"}

	tests := []struct {
		name string
		mut  func(*CreateDelegationCommand)
	}{
		{"bad smart account", func(c *CreateDelegationCommand) { c.SmartAccountAddress = "nope" }},
		{"empty payload", func(c *CreateDelegationCommand) { c.PermissionContext = "0x" }},
		{"non-hex payload", func(c *CreateDelegationCommand) { c.PermissionContext = "0xzz" }},
		{"negative max calls", func(c *CreateDelegationCommand) { c.MaxCalls = -1 }},
		{"expiry in the past", func(c *CreateDelegationCommand) { c.ExpiresAt = testNow.Add(-time.Second) }},
		{"foreign backend", func(c *CreateDelegationCommand) { c.BackendAddress = issuerB }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mut(&cmd)
			_, err := f.delegations.CreateDelegation(ctx, issuerA, cmd)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	t.Run("matching backend in any case", func(t *testing.T) {
		cmd := valid
		cmd.BackendAddress = "0x2222222222222222222222222222222222222222"
		_, err := f.delegations.CreateDelegation(ctx, issuerA, cmd)
		require.NoError(t, err)
	})
}

func TestCreateDelegationRejectsDuplicatePayload(t *testing.T) {
	ctx := context.Background()
	f := newPipeline(t)

	cmd := CreateDelegationCommand{SmartAccountAddress: account, PermissionContext: "0xabcdef"}
	_, err := f.delegations.CreateDelegation(ctx, issuerA, cmd)
	require.NoError(t, err)

	_, err = f.delegations.CreateDelegation(ctx, issuerA, cmd)
	require.ErrorIs(t, err, ErrDuplicateDelegation)
}

func TestRevokeDelegation(t *testing.T) {
	ctx := context.Background()
	f := newPipeline(t)
	d := f.delegate(t, issuerA, 3)

	_, err := f.delegations.RevokeDelegation(ctx, issuerB, d.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	revoked, err := f.delegations.RevokeDelegation(ctx, issuerA, d.ID)
	require.NoError(t, err)
	require.True(t, revoked.IsRevoked)
	require.NotNil(t, revoked.RevokedAt)

	f.clock.Advance(time.Minute)
	again, err := f.delegations.RevokeDelegation(ctx, issuerA, d.ID)
	require.NoError(t, err)
	require.Equal(t, revoked.RevokedAt, again.RevokedAt)

	_, err = f.delegations.GetActiveDelegation(ctx, issuerA)
	require.ErrorIs(t, err, ErrDelegationNotFound)

	_, err = f.delegations.RevokeDelegation(ctx, issuerA, "dlg_missing")
	require.ErrorIs(t, err, ErrDelegationNotFound)

	list, err := f.delegations.ListDelegations(ctx, issuerA, false)
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = f.delegations.ListDelegations(ctx, issuerA, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
