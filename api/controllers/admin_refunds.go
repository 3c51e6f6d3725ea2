package controllers

import (
	"net/http"

	"github.com/luisareyes-dev/tianguis-backend/api/middleware"
	"github.com/luisareyes-dev/tianguis-backend/api/responses"
	"github.com/luisareyes-dev/tianguis-backend/internal/refunds"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

// ProcessRefund pushes a resolved dispute's refund through the payment gateway.
func ProcessRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Process(r.Context(), refunds.ProcessInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConfirmRefund re-checks a pending refund against the gateway and settles it.
func ConfirmRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Confirm(r.Context(), refunds.ConfirmInput{
			DisputeID: disputeID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
