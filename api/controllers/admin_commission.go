package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisareyes-dev/tianguis-backend/api/responses"
	"github.com/luisareyes-dev/tianguis-backend/api/validators"
	"github.com/luisareyes-dev/tianguis-backend/internal/commission"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

type setCommissionRateRequest struct {
	Rate     string  `json:"rate" validate:"required"`
	VendorID *string `json:"vendor_id,omitempty" validate:"omitempty,uuid4"`
	Category *string `json:"category,omitempty" validate:"omitempty,max=100"`
}

// SetCommissionRate upserts a default, category, or vendor commission rate.
func SetCommissionRate(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		var req setCommissionRateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rate"))
			return
		}

		input := commission.SetRateInput{Rate: rate}
		if req.VendorID != nil {
			vendorID, parseErr := uuid.Parse(*req.VendorID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid vendor id"))
				return
			}
			input.VendorID = &vendorID
		}
		if req.Category != nil {
			category := validators.SanitizeString(*req.Category, 100)
			input.Category = &category
		}

		record, err := svc.SetRate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// ListCommissionRates returns the rate table, optionally only active tiers.
func ListCommissionRates(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		activeOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true")
		rates, err := svc.ListRates(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rates": rates})
	}
}
