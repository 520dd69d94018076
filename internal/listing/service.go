// AngelaMos | 2026
// service.go

package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/fee"
	"github.com/tonymphomilanzi/microbid/internal/quota"
)

// QuotaReserver consumes monthly allowance, optionally inside tx.
type QuotaReserver interface {
	ReserveInTx(ctx context.Context, tx core.DBTX, userID string, resource quota.Resource) error
}

type Service struct {
	repo  Repository
	uow   UnitOfWork
	quota QuotaReserver
}

func NewService(repo Repository, uow UnitOfWork, quota QuotaReserver) *Service {
	return &Service{repo: repo, uow: uow, quota: quota}
}

type CreateInput struct {
	SellerID    string
	Title       string
	Description string
	Platform    string
	PriceCents  int64
}

// Create reserves one listing from the seller's monthly quota and persists
// the listing in the same unit of work.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Listing, error) {
	if in.SellerID == "" {
		return nil, fmt.Errorf("create listing: %w", core.ErrUnauthorized)
	}
	if in.PriceCents < 0 {
		return nil, core.InvalidInputError("price_cents must be at least 0")
	}
	if in.PriceCents > fee.MaxPriceCents {
		return nil, core.InvalidInputError(
			fmt.Sprintf("price_cents must be at most %d", fee.MaxPriceCents),
		)
	}

	listing := &Listing{
		ID:          uuid.New().String(),
		SellerID:    in.SellerID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Platform:    strings.ToLower(strings.TrimSpace(in.Platform)),
		PriceCents:  in.PriceCents,
		Status:      StatusActive,
	}

	err := s.uow.Within(ctx, func(repo Repository, tx core.DBTX) error {
		if err := s.quota.ReserveInTx(ctx, tx, in.SellerID, quota.ResourceListings); err != nil {
			return err
		}
		return repo.Create(ctx, listing)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "listing created",
		"listing_id", listing.ID,
		"seller_id", listing.SellerID,
		"price_cents", listing.PriceCents,
	)

	return listing, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Listing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("listing")
		}
		return nil, err
	}
	return listing, nil
}
