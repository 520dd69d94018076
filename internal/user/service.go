// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tonymphomilanzi/microbid/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("user")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.GetUser(ctx, userID)
}

// UpdateUserTier is the admin override. Paid tiers normally arrive through
// subscription payment verification.
func (s *Service) UpdateUserTier(
	ctx context.Context,
	id string,
	tier Tier,
) (*User, error) {
	if !tier.Valid() {
		return nil, core.InvalidInputError(fmt.Sprintf("invalid tier %q", tier))
	}

	if err := s.repo.UpdateTier(ctx, id, tier); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("user")
		}
		return nil, err
	}

	slog.InfoContext(ctx, "user tier overridden", "user_id", id, "tier", tier)

	return s.GetUser(ctx, id)
}
