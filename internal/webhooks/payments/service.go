package paymentwebhook

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/internal/orders"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

// Event is the envelope Square posts for payment lifecycle changes.
type Event struct {
	EventID string    `json:"event_id"`
	Type    string    `json:"type"`
	Data    EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment *PaymentPayload `json:"payment"`
}

// PaymentPayload carries the fields we read off a Square payment. The
// reference id holds our order UUID, set when the payment is created.
type PaymentPayload struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
}

type Service struct {
	orders orders.Service
	logger *logger.Logger
}

func NewService(ordersSvc orders.Service, logg *logger.Logger) (*Service, error) {
	if ordersSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	return &Service{orders: ordersSvc, logger: logg}, nil
}

// HandleEvent applies a Square payment event to the order ledger. Events we
// do not act on are acknowledged so Square stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		return s.applyPayment(ctx, event.Data.Object.Payment)
	default:
		return nil
	}
}

func (s *Service) applyPayment(ctx context.Context, payment *PaymentPayload) error {
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	if !strings.EqualFold(payment.Status, "COMPLETED") {
		return nil
	}

	orderID, err := uuid.Parse(strings.TrimSpace(payment.ReferenceID))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment reference is not an order id")
	}

	_, err = s.orders.MarkPaid(ctx, orders.MarkPaidInput{
		OrderID:   orderID,
		PaymentID: payment.ID,
		ActorID:   uuid.Nil,
		ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		// A replayed completion for an already-paid order is not an error.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			if s.logger != nil {
				s.logger.Info(ctx, "payment event ignored, order already settled")
			}
			return nil
		}
		return err
	}
	return nil
}
