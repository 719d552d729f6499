package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/issuer/internal/issuer/domain"
	"github.com/aussiebroadwan/issuer/internal/issuer/store"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewStoreFromDB(db), mock
}

func delegationRow(id string, calls int, revoked bool) []driver.Value {
	var revokedAt driver.Value
	if revoked {
		revokedAt = t0
	}
	return []driver.Value{
		id, "0xissuer", "0xaccount", "0xbackend", []byte("sealed"), "digest-" + id,
		int64(5), int64(calls), t0.Add(time.Hour), revoked, revokedAt, t0,
	}
}

var delegationCols = []string{
	"id", "issuer_address", "smart_account_address", "backend_address", "sealed_payload", "payload_digest",
	"max_calls", "calls_used", "expires_at", "is_revoked", "revoked_at", "created_at",
}

func TestGetDelegationByID(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM delegations WHERE id = $1")).
		WithArgs("dlg_1").
		WillReturnRows(sqlmock.NewRows(delegationCols).AddRow(delegationRow("dlg_1", 2, true)...))

	d, err := s.Delegations().GetDelegationByID(ctx, "dlg_1")
	require.NoError(t, err)
	require.Equal(t, 2, d.CallsUsed)
	require.True(t, d.IsRevoked)
	require.NotNil(t, d.RevokedAt)
	require.Equal(t, []byte("sealed"), d.SealedPayload)

	mock.ExpectQuery(regexp.QuoteMeta("FROM delegations WHERE id = $1")).
		WithArgs("dlg_2").
		WillReturnRows(sqlmock.NewRows(delegationCols))

	_, err = s.Delegations().GetDelegationByID(ctx, "dlg_2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateDelegationDuplicateDigest(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO delegations")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := s.Delegations().CreateDelegation(context.Background(), domain.Delegation{
		ID: "dlg_1", MaxCalls: 5, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestIncrementCallCount(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE delegations SET calls_used = calls_used + 1")).
		WithArgs("dlg_1", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE delegations SET calls_used = calls_used + 1")).
		WithArgs("dlg_1", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Delegations().IncrementCallCount(ctx, "dlg_1", t0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Delegations().IncrementCallCount(ctx, "dlg_1", t0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRevokeDelegation(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	// first revoke
	mock.ExpectExec(regexp.QuoteMeta("UPDATE delegations SET is_revoked = TRUE")).
		WithArgs("dlg_1", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delegations().RevokeDelegation(ctx, "dlg_1", t0))

	// already revoked
	mock.ExpectExec(regexp.QuoteMeta("UPDATE delegations SET is_revoked = TRUE")).
		WithArgs("dlg_1", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("dlg_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	require.NoError(t, s.Delegations().RevokeDelegation(ctx, "dlg_1", t0))

	// unknown
	mock.ExpectExec(regexp.QuoteMeta("UPDATE delegations SET is_revoked = TRUE")).
		WithArgs("dlg_x", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("dlg_x").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	require.ErrorIs(t, s.Delegations().RevokeDelegation(ctx, "dlg_x", t0), store.ErrNotFound)
}

func TestListDelegationsByIssuer(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WithArgs("0xissuer", false).
		WillReturnRows(sqlmock.NewRows(delegationCols).
			AddRow(delegationRow("dlg_2", 0, false)...).
			AddRow(delegationRow("dlg_1", 1, false)...))

	out, err := s.Delegations().ListDelegationsByIssuer(context.Background(), "0xissuer", false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "dlg_2", out[0].ID)
}

func TestHitRateLimit(t *testing.T) {
	s, mock := newMock(t)

	reset := t0.Add(time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO rate_limits")).
		WithArgs("ai:ip:1.2.3.4", reset, t0, 10).
		WillReturnRows(sqlmock.NewRows([]string{"count", "reset_at"}).AddRow(int64(3), reset))

	count, got, err := s.RateLimits().HitRateLimit(context.Background(), "ai:ip:1.2.3.4", 10, time.Minute, t0)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.True(t, got.Equal(reset))
}

func TestRecipientHistory(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM issuances WHERE recipient_address = $1")).
		WithArgs("0xr").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT credential_type")).
		WithArgs("0xr").
		WillReturnRows(sqlmock.NewRows([]string{"credential_type"}).AddRow("membership"))

	h, err := s.Issuances().RecipientHistory(context.Background(), "0xr")
	require.NoError(t, err)
	require.Equal(t, 2, h.TotalCredentials)
	require.Equal(t, []string{"membership"}, h.CredentialTypes)
}
