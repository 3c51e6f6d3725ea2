package controllers

import (
	"net/http"

	"github.com/luisareyes-dev/tianguis-backend/api/middleware"
	"github.com/luisareyes-dev/tianguis-backend/api/responses"
	"github.com/luisareyes-dev/tianguis-backend/api/validators"
	"github.com/luisareyes-dev/tianguis-backend/internal/disputes"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
	"github.com/luisareyes-dev/tianguis-backend/pkg/types"
)

type assignDisputeRequest struct {
	AssignedTo types.NullableUUID `json:"assigned_to"`
}

// AssignDispute sets or clears the admin working a dispute.
func AssignDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Assign(r.Context(), disputes.AssignInput{
			DisputeID:  disputeID,
			ActorID:    middleware.ActorIDFromContext(r.Context()),
			ActorRole:  middleware.RoleFromContext(r.Context()),
			AssignedTo: req.AssignedTo,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "assigned"})
	}
}

type updateDisputeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateDisputeStatus moves a dispute between open and investigating.
func UpdateDisputeStatus(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateDisputeStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseDisputeStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		if err := svc.UpdateStatus(r.Context(), disputes.UpdateStatusInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Status:    status,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

type updateDisputePriorityRequest struct {
	Priority string `json:"priority" validate:"required"`
}

// UpdateDisputePriority changes the triage priority.
func UpdateDisputePriority(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateDisputePriorityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		priority, err := enums.ParseDisputePriority(req.Priority)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority"))
			return
		}

		if err := svc.UpdatePriority(r.Context(), disputes.UpdatePriorityInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Priority:  priority,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"priority": string(priority)})
	}
}

type resolveDisputeRequest struct {
	Resolution        string `json:"resolution" validate:"required"`
	Notes             string `json:"notes" validate:"omitempty,max=2000"`
	RefundAmountCents *int   `json:"refund_amount_cents" validate:"omitempty,min=1"`
}

// ResolveDispute records the final resolution of a dispute.
func ResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resolution, err := enums.ParseResolutionType(req.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution"))
			return
		}

		dispute, err := svc.Resolve(r.Context(), disputes.ResolveInput{
			DisputeID:         disputeID,
			ActorID:           middleware.ActorIDFromContext(r.Context()),
			ActorRole:         middleware.RoleFromContext(r.Context()),
			Resolution:        resolution,
			Notes:             validators.SanitizeString(req.Notes, 2000),
			RefundAmountCents: req.RefundAmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}
