// AngelaMos | 2026
// postgres_store.go

package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

type postgresStore struct {
	db core.DBTX
}

// NewPostgresStore keeps counters in usage_counters. Bound to a transaction
// it lets a reservation commit or roll back with the row it guards.
func NewPostgresStore(db core.DBTX) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) EnsureCounter(
	ctx context.Context,
	userID, monthKey string,
) error {
	query := `
		INSERT INTO usage_counters (user_id, month_key)
		VALUES ($1, $2)
		ON CONFLICT (user_id, month_key) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, userID, monthKey); err != nil {
		return fmt.Errorf("ensure counter: %w", err)
	}
	return nil
}

func (s *postgresStore) IncrementIfBelow(
	ctx context.Context,
	userID, monthKey string,
	resource Resource,
	limit int64,
) (bool, error) {
	column, ok := resourceColumns[resource]
	if !ok {
		return false, fmt.Errorf("increment counter: unknown resource %q: %w", resource, core.ErrInvalidInput)
	}

	//nolint:gosec // G201: column comes from the fixed resourceColumns map
	query := fmt.Sprintf(`
		UPDATE usage_counters
		SET %[1]s = %[1]s + 1, updated_at = NOW()
		WHERE user_id = $1 AND month_key = $2 AND %[1]s < $3`, column)

	result, err := s.db.ExecContext(ctx, query, userID, monthKey, limit)
	if err != nil {
		return false, fmt.Errorf("increment counter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment counter: %w", err)
	}

	return rows == 1, nil
}

func (s *postgresStore) Get(
	ctx context.Context,
	userID, monthKey string,
) (*Counter, error) {
	query := `
		SELECT user_id, month_key, listings_created, conversations_opened,
		       created_at, updated_at
		FROM usage_counters
		WHERE user_id = $1 AND month_key = $2`

	var counter Counter
	err := s.db.GetContext(ctx, &counter, query, userID, monthKey)
	if errors.Is(err, sql.ErrNoRows) {
		return &Counter{UserID: userID, MonthKey: monthKey}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get counter: %w", err)
	}

	return &counter, nil
}
