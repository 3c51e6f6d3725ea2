package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/api/middleware"
	"github.com/luisareyes-dev/tianguis-backend/api/responses"
	"github.com/luisareyes-dev/tianguis-backend/api/validators"
	"github.com/luisareyes-dev/tianguis-backend/internal/fulfillment"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

type advanceItemRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// AdvanceItem moves one order item to the given pipeline stage. The stage
// must be the immediate successor of the item's current stage.
func AdvanceItem(svc fulfillment.Service, target enums.ItemFulfillmentStatus, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		itemID, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req advanceItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AdvanceItem(r.Context(), fulfillment.AdvanceItemInput{
			OrderID:   req.OrderID,
			ItemID:    itemID,
			Target:    target,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type courierRequest struct {
	CourierName  string `json:"courier_name" validate:"max=200"`
	TrackingCode string `json:"tracking_code" validate:"max=200"`
}

func (c courierRequest) toInfo() fulfillment.CourierInfo {
	return fulfillment.CourierInfo{
		CourierName:  validators.SanitizeString(c.CourierName, 200),
		TrackingCode: validators.SanitizeString(c.TrackingCode, 200),
	}
}

// VendorOrderAction applies a bulk stage move to every item the acting
// vendor owns in the order. Courier metadata in the body is stamped on the
// items when they are handed to a courier.
func VendorOrderAction(action func(context.Context, fulfillment.VendorActionInput) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if action == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req courierRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())
		if err := action(r.Context(), fulfillment.VendorActionInput{
			OrderID:   orderID,
			VendorID:  actorID,
			Courier:   req.toInfo(),
			ActorID:   actorID,
			ActorRole: middleware.RoleFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// OrderAction applies an order-wide stage move on a single-vendor order.
func OrderAction(action func(context.Context, fulfillment.OrderActionInput) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if action == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req courierRequest
		if err := decodeOptionalBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := action(r.Context(), fulfillment.OrderActionInput{
			OrderID:   orderID,
			Courier:   req.toInfo(),
			ActorID:   middleware.ActorIDFromContext(r.Context()),
			ActorRole: middleware.RoleFromContext(r.Context()),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
