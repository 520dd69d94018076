// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestGetByIDNormalisesTier(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "role", "tier", "completed_deals_count", "created_at", "updated_at",
		}).AddRow("u1", "a@b.c", "A", RoleUser, "vip", 4, now, now))

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, TierVIP, u.Tier)
	assert.Equal(t, 4, u.CompletedDealsCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIncrementCompletedDealsTouchesEveryParty(t *testing.T) {
	repo, mock := newMockRepo(t)

	for _, id := range []string{"buyer", "seller"} {
		mock.ExpectExec(regexp.QuoteMeta("SET completed_deals_count = completed_deals_count + 1")).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, repo.IncrementCompletedDeals(context.Background(), "buyer", "seller"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTierMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("ghost", "PRO").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTier(context.Background(), "ghost", TierPro)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierPro, ParseTier(" pro "))
	assert.Equal(t, TierFree, ParseTier("gold"))
	assert.Equal(t, TierFree, ParseTier(""))
	assert.True(t, (&User{Tier: TierAdmin}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin, Tier: TierFree}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser, Tier: TierVIP}).IsAdmin())
}
