package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/api/middleware"
	"github.com/luisareyes-dev/tianguis-backend/api/responses"
	"github.com/luisareyes-dev/tianguis-backend/api/validators"
	"github.com/luisareyes-dev/tianguis-backend/internal/disputes"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

type openDisputeRequest struct {
	OrderID  uuid.UUID   `json:"order_id" validate:"required"`
	Type     string      `json:"type" validate:"required"`
	Priority string      `json:"priority" validate:"omitempty"`
	Reason   string      `json:"reason" validate:"required,max=2000"`
	Evidence []string    `json:"evidence" validate:"omitempty,max=10,dive,max=2048"`
	ItemIDs  []uuid.UUID `json:"item_ids" validate:"omitempty,max=50"`
}

// OpenDispute creates a dispute against a delivered order.
func OpenDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		var req openDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputeType, err := enums.ParseDisputeType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute type"))
			return
		}

		input := disputes.OpenInput{
			OrderID:   req.OrderID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Type:      disputeType,
			Reason:    validators.SanitizeString(req.Reason, 2000),
			Evidence:  req.Evidence,
			ItemIDs:   req.ItemIDs,
		}
		if strings.TrimSpace(req.Priority) != "" {
			priority, err := enums.ParseDisputePriority(req.Priority)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority"))
				return
			}
			input.Priority = priority
		}

		dispute, err := svc.Open(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

// ListDisputes returns the dispute page visible to the acting role.
func ListDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildDisputeFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), middleware.ActorIDFromContext(r.Context()), middleware.RoleFromContext(r.Context()), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetDispute returns the dispute thread for a participant or admin.
func GetDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
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

		dispute, err := svc.Get(r.Context(), disputeID, middleware.ActorIDFromContext(r.Context()), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

type disputeMessageRequest struct {
	Body     string `json:"body" validate:"required,max=4000"`
	Internal bool   `json:"internal"`
}

// AddDisputeMessage appends a message to an active dispute thread.
func AddDisputeMessage(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req disputeMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.AddMessage(r.Context(), disputes.AddMessageInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Body:      validators.SanitizeString(req.Body, 4000),
			Internal:  req.Internal,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

type disputeReasonRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// EscalateDispute flags a dispute for senior review.
func EscalateDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req disputeReasonRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Escalate(r.Context(), disputes.EscalateInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Reason:    validators.SanitizeString(req.Reason, 500),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "escalated"})
	}
}

// CloseDispute terminates a dispute without a resolution record.
func CloseDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req disputeReasonRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Close(r.Context(), disputes.CloseInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
			Reason:    validators.SanitizeString(req.Reason, 500),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}

func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, dest)
}

func buildDisputeFilters(r *http.Request) (disputes.Filters, error) {
	var filters disputes.Filters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseDisputeStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("priority")); raw != "" {
		priority, err := enums.ParseDisputePriority(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority filter")
		}
		filters.Priority = &priority
	}
	if raw := strings.TrimSpace(query.Get("order_id")); raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id filter")
		}
		filters.OrderID = &orderID
	}
	if raw := strings.TrimSpace(query.Get("assigned_to")); raw != "" {
		assignee, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assigned_to filter")
		}
		filters.AssignedTo = &assignee
	}
	return filters, nil
}
