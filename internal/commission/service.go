package commission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ResolvedRate carries the rate chosen for a line plus the tier it came from.
type ResolvedRate struct {
	Rate  decimal.Decimal
	Scope enums.RateScope
}

// SetRateInput captures an admin rate change. VendorID and Category are
// mutually exclusive; both empty targets the default tier.
type SetRateInput struct {
	Rate     decimal.Decimal
	VendorID *uuid.UUID
	Category *string
}

// Service resolves commission rates and manages the rate table.
type Service interface {
	ResolveRate(ctx context.Context, vendorID uuid.UUID, category string) (*ResolvedRate, error)
	SetRate(ctx context.Context, input SetRateInput) (*models.CommissionRate, error)
	ListRates(ctx context.Context, activeOnly bool) ([]models.CommissionRate, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a commission service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// ResolveRate picks the most specific active tier: vendor beats category
// beats default. A missing default tier is a configuration error.
func (s *service) ResolveRate(ctx context.Context, vendorID uuid.UUID, category string) (*ResolvedRate, error) {
	if vendorID != uuid.Nil {
		rate, err := s.repo.FindActiveVendorRate(ctx, vendorID)
		switch {
		case err == nil:
			return &ResolvedRate{Rate: rate.Rate, Scope: enums.RateScopeVendor}, nil
		case err != gorm.ErrRecordNotFound:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor rate")
		}
	}

	if trimmed := strings.TrimSpace(category); trimmed != "" {
		rate, err := s.repo.FindActiveCategoryRate(ctx, trimmed)
		switch {
		case err == nil:
			return &ResolvedRate{Rate: rate.Rate, Scope: enums.RateScopeCategory}, nil
		case err != gorm.ErrRecordNotFound:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category rate")
		}
	}

	rate, err := s.repo.FindActiveDefaultRate(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "default commission rate missing")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default rate")
	}
	return &ResolvedRate{Rate: rate.Rate, Scope: enums.RateScopeDefault}, nil
}

func (s *service) SetRate(ctx context.Context, input SetRateInput) (*models.CommissionRate, error) {
	if input.Rate.IsNegative() || input.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be between 0 and 1")
	}
	if input.VendorID != nil && input.Category != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor and category rates are mutually exclusive")
	}

	scope := enums.RateScopeDefault
	switch {
	case input.VendorID != nil:
		if *input.VendorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
		}
		scope = enums.RateScopeVendor
	case input.Category != nil:
		trimmed := strings.TrimSpace(*input.Category)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
		}
		input.Category = &trimmed
		scope = enums.RateScopeCategory
	}

	record := &models.CommissionRate{
		Scope:       scope,
		VendorID:    input.VendorID,
		Category:    input.Category,
		Rate:        input.Rate,
		Active:      true,
		EffectiveAt: time.Now().UTC(),
	}

	// Existing rows stay for historical orders; only the active flag moves.
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivateScope(ctx, scope, input.VendorID, input.Category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate current rate")
		}
		if err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rate")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) ListRates(ctx context.Context, activeOnly bool) ([]models.CommissionRate, error) {
	rates, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rates")
	}
	return rates, nil
}
