package paymentwebhook

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/internal/orders"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/pagination"
)

type stubOrders struct {
	markPaidCalls []orders.MarkPaidInput
	markPaidErr   error
}

func (s *stubOrders) Create(context.Context, orders.CreateInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) MarkPaid(_ context.Context, input orders.MarkPaidInput) (*models.Order, error) {
	s.markPaidCalls = append(s.markPaidCalls, input)
	if s.markPaidErr != nil {
		return nil, s.markPaidErr
	}
	return &models.Order{ID: input.OrderID}, nil
}

func (s *stubOrders) Cancel(context.Context, orders.CancelInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) Complete(context.Context, orders.CompleteInput) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) Get(context.Context, uuid.UUID, uuid.UUID, enums.ActorRole) (*models.Order, error) {
	return nil, nil
}

func (s *stubOrders) ListBuyerOrders(context.Context, uuid.UUID, pagination.Params, orders.Filters) (*orders.List, error) {
	return nil, nil
}

func (s *stubOrders) ListVendorOrders(context.Context, uuid.UUID, pagination.Params, orders.Filters) (*orders.List, error) {
	return nil, nil
}

func completedEvent(orderID uuid.UUID) *Event {
	return &Event{
		EventID: "evt-1",
		Type:    "payment.updated",
		Data: EventData{
			Type: "payment",
			ID:   "pay-123",
			Object: EventObject{
				Payment: &PaymentPayload{
					ID:          "pay-123",
					Status:      "COMPLETED",
					ReferenceID: orderID.String(),
				},
			},
		},
	}
}

func TestHandleEventMarksOrderPaid(t *testing.T) {
	stub := &stubOrders{}
	svc, err := NewService(stub, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	orderID := uuid.New()
	if err := svc.HandleEvent(context.Background(), completedEvent(orderID)); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(stub.markPaidCalls) != 1 {
		t.Fatalf("expected one mark paid call, got %d", len(stub.markPaidCalls))
	}
	call := stub.markPaidCalls[0]
	if call.OrderID != orderID {
		t.Fatalf("expected order %s, got %s", orderID, call.OrderID)
	}
	if call.PaymentID != "pay-123" {
		t.Fatalf("expected payment id pay-123, got %s", call.PaymentID)
	}
}

func TestHandleEventIgnoresIncompletePayments(t *testing.T) {
	stub := &stubOrders{}
	svc, _ := NewService(stub, nil)

	event := completedEvent(uuid.New())
	event.Data.Object.Payment.Status = "PENDING"
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(stub.markPaidCalls) != 0 {
		t.Fatalf("expected no mark paid calls, got %d", len(stub.markPaidCalls))
	}
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	stub := &stubOrders{}
	svc, _ := NewService(stub, nil)

	if err := svc.HandleEvent(context.Background(), &Event{EventID: "evt-2", Type: "refund.updated"}); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(stub.markPaidCalls) != 0 {
		t.Fatalf("expected no mark paid calls, got %d", len(stub.markPaidCalls))
	}
}

func TestHandleEventSwallowsReplayedCompletion(t *testing.T) {
	stub := &stubOrders{markPaidErr: pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")}
	svc, _ := NewService(stub, nil)

	if err := svc.HandleEvent(context.Background(), completedEvent(uuid.New())); err != nil {
		t.Fatalf("expected replay to be swallowed, got %v", err)
	}
}

func TestHandleEventRejectsBadReference(t *testing.T) {
	stub := &stubOrders{}
	svc, _ := NewService(stub, nil)

	event := completedEvent(uuid.New())
	event.Data.Object.Payment.ReferenceID = "not-a-uuid"
	err := svc.HandleEvent(context.Background(), event)
	if err == nil {
		t.Fatalf("expected error for bad reference id")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
