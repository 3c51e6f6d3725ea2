package controllers

import (
	"net/http"

	"github.com/luisareyes-dev/tianguis-backend/api/middleware"
	"github.com/luisareyes-dev/tianguis-backend/api/responses"
	"github.com/luisareyes-dev/tianguis-backend/api/validators"
	internalorders "github.com/luisareyes-dev/tianguis-backend/internal/orders"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

type markPaidRequest struct {
	PaymentID string `json:"payment_id" validate:"required,max=255"`
}

// AdminMarkPaid records a successful payment against a pending order. The
// webhook is the usual path; this covers manual reconciliation.
func AdminMarkPaid(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req markPaidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkPaid(r.Context(), internalorders.MarkPaidInput{
			OrderID:   orderID,
			PaymentID: validators.SanitizeString(req.PaymentID, 255),
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
