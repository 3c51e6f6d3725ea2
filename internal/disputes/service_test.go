package disputes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/internal/audit"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/pkg/config"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/pagination"
	"github.com/luisareyes-dev/tianguis-backend/pkg/types"
)

type stubDisputesRepo struct {
	order    *models.Order
	disputes []*models.Dispute
	messages []*models.DisputeMessage

	orderUpdates map[string]any
	listFilters  Filters
}

func (s *stubDisputesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubDisputesRepo) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	dispute.ID = uuid.New()
	dispute.CreatedAt = time.Now().UTC()
	s.disputes = append(s.disputes, dispute)
	return nil
}

func (s *stubDisputesRepo) FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	for _, d := range s.disputes {
		if d.ID == disputeID {
			copied := *d
			copied.Messages = make([]models.DisputeMessage, 0)
			for _, m := range s.messages {
				if m.DisputeID == disputeID {
					copied.Messages = append(copied.Messages, *m)
				}
			}
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDisputesRepo) UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error {
	for _, d := range s.disputes {
		if d.ID == disputeID {
			if assigned, ok := updates["assigned_to"]; ok {
				d.AssignedTo, _ = assigned.(*uuid.UUID)
			}
		}
	}
	return nil
}

func (s *stubDisputesRepo) UpdateDisputeWhereStatus(ctx context.Context, disputeID uuid.UUID, allowed []enums.DisputeStatus, updates map[string]any) (int64, error) {
	for _, d := range s.disputes {
		if d.ID != disputeID {
			continue
		}
		eligible := false
		for _, status := range allowed {
			if d.Status == status {
				eligible = true
			}
		}
		if !eligible {
			return 0, nil
		}
		if status, ok := updates["status"].(enums.DisputeStatus); ok {
			d.Status = status
		}
		if priority, ok := updates["priority"].(enums.DisputePriority); ok {
			d.Priority = priority
		}
		if resolution, ok := updates["resolution"].(enums.ResolutionType); ok {
			d.Resolution = &resolution
		}
		if amount, ok := updates["refund_amount_cents"].(int); ok {
			d.RefundAmount = &amount
		}
		return 1, nil
	}
	return 0, nil
}

func (s *stubDisputesRepo) CountActiveForOrder(ctx context.Context, orderID uuid.UUID, exclude uuid.UUID) (int64, error) {
	var count int64
	for _, d := range s.disputes {
		if d.OrderID != orderID || d.ID == exclude {
			continue
		}
		if d.Status != enums.DisputeStatusResolved && d.Status != enums.DisputeStatusClosed {
			count++
		}
	}
	return count, nil
}

func (s *stubDisputesRepo) CreateMessage(ctx context.Context, message *models.DisputeMessage) error {
	message.ID = uuid.New()
	s.messages = append(s.messages, message)
	return nil
}

func (s *stubDisputesRepo) ListDisputes(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	s.listFilters = filters
	return &List{Disputes: []Summary{}}, nil
}

func (s *stubDisputesRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubDisputesRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.orderUpdates = updates
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		s.order.Status = status
	}
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAuditor struct {
	entries []audit.Entry
}

func (s *stubAuditor) Record(ctx context.Context, entry audit.Entry) {
	s.entries = append(s.entries, entry)
}

func deliveredOrder(buyerID, vendorID uuid.UUID, deliveredAgo time.Duration) *models.Order {
	deliveredAt := time.Now().UTC().Add(-deliveredAgo)
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   2001,
		BuyerID:       buyerID,
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		TotalCents:    5000,
		DeliveredAt:   &deliveredAt,
	}
	order.Items = []models.OrderItem{{
		ID:                uuid.New(),
		OrderID:           order.ID,
		VendorID:          vendorID,
		ProductID:         uuid.New(),
		Quantity:          1,
		FulfillmentStatus: enums.ItemFulfillmentStatusDelivered,
	}}
	return order
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, config.DisputesConfig{Window: 48 * time.Hour},
		notifications.NoopDispatcher{}, &stubAuditor{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestOpenDisputeMarksOrderDisputed(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID:   order.ID,
		ActorID:   buyer,
		ActorRole: enums.ActorRoleBuyer,
		Type:      enums.DisputeTypeQuality,
		Reason:    "item arrived damaged",
		ItemIDs:   []uuid.UUID{order.Items[0].ID},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dispute.Status != enums.DisputeStatusOpen {
		t.Fatalf("expected open dispute, got %s", dispute.Status)
	}
	if dispute.Priority != enums.DisputePriorityMedium {
		t.Fatalf("expected default medium priority, got %s", dispute.Priority)
	}
	if repo.order.Status != enums.OrderStatusDisputed {
		t.Fatalf("expected order disputed, got %s", repo.order.Status)
	}
}

func TestOpenDisputeOutsideWindow(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), 72*time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	_, err := svc.Open(context.Background(), OpenInput{
		OrderID:   order.ID,
		ActorID:   buyer,
		ActorRole: enums.ActorRoleBuyer,
		Type:      enums.DisputeTypeQuality,
		Reason:    "too late",
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict outside window, got %v", err)
	}
}

func TestOpenDisputeAdminBypassesWindow(t *testing.T) {
	order := deliveredOrder(uuid.New(), uuid.New(), 72*time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	_, err := svc.Open(context.Background(), OpenInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
		Type:      enums.DisputeTypeFraud,
		Reason:    "chargeback received",
	})
	if err != nil {
		t.Fatalf("admin open should bypass the window: %v", err)
	}
}

func TestOpenDisputeRejectsForeignBuyer(t *testing.T) {
	order := deliveredOrder(uuid.New(), uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	_, err := svc.Open(context.Background(), OpenInput{
		OrderID:   order.ID,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleBuyer,
		Type:      enums.DisputeTypeQuality,
		Reason:    "not my order",
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestOpenDisputeRejectsUndeliveredOrder(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	order.Status = enums.OrderStatusPreparing
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	_, err := svc.Open(context.Background(), OpenInput{
		OrderID:   order.ID,
		ActorID:   buyer,
		ActorRole: enums.ActorRoleBuyer,
		Type:      enums.DisputeTypeDelivery,
		Reason:    "never arrived",
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestOpenDisputeRejectsForeignItem(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	_, err := svc.Open(context.Background(), OpenInput{
		OrderID:   order.ID,
		ActorID:   buyer,
		ActorRole: enums.ActorRoleBuyer,
		Type:      enums.DisputeTypeQuality,
		Reason:    "wrong item reference",
		ItemIDs:   []uuid.UUID{uuid.New()},
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveRefundRequiresAmount(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeRefund, Reason: "want my money back",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = svc.Resolve(context.Background(), ResolveInput{
		DisputeID:  dispute.ID,
		ActorID:    uuid.New(),
		ActorRole:  enums.ActorRoleAdmin,
		Resolution: enums.ResolutionTypeFullRefund,
		Notes:      "approved",
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without amount, got %v", err)
	}

	amount := order.TotalCents + 1
	_, err = svc.Resolve(context.Background(), ResolveInput{
		DisputeID:         dispute.ID,
		ActorID:           uuid.New(),
		ActorRole:         enums.ActorRoleAdmin,
		Resolution:        enums.ResolutionTypeFullRefund,
		Notes:             "approved",
		RefundAmountCents: &amount,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error above order total, got %v", err)
	}
}

func TestResolveRestoresOrderStatus(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeQuality, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if repo.order.Status != enums.OrderStatusDisputed {
		t.Fatalf("expected disputed order, got %s", repo.order.Status)
	}

	amount := 2500
	resolved, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:         dispute.ID,
		ActorID:           uuid.New(),
		ActorRole:         enums.ActorRoleAdmin,
		Resolution:        enums.ResolutionTypePartialRefund,
		Notes:             "half refund agreed",
		RefundAmountCents: &amount,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Status != enums.DisputeStatusResolved {
		t.Fatalf("expected resolved, got %s", resolved.Status)
	}
	if resolved.RefundAmount == nil || *resolved.RefundAmount != amount {
		t.Fatalf("expected refund amount %d, got %v", amount, resolved.RefundAmount)
	}
	if repo.order.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected order restored to delivered, got %s", repo.order.Status)
	}
}

func TestResolveKeepsFreezeWithOtherActiveDispute(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	first, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeQuality, Reason: "first issue",
	})
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	if _, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeDelivery, Reason: "second issue",
	}); err != nil {
		t.Fatalf("Open second: %v", err)
	}

	if _, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:  first.ID,
		ActorID:    uuid.New(),
		ActorRole:  enums.ActorRoleAdmin,
		Resolution: enums.ResolutionTypeNoAction,
		Notes:      "not reproducible",
	}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if repo.order.Status != enums.OrderStatusDisputed {
		t.Fatalf("order should stay disputed while another dispute is active, got %s", repo.order.Status)
	}
}

func TestResolveTwiceConflicts(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeOther, Reason: "misc",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	input := ResolveInput{
		DisputeID:  dispute.ID,
		ActorID:    uuid.New(),
		ActorRole:  enums.ActorRoleAdmin,
		Resolution: enums.ResolutionTypeNoAction,
		Notes:      "done",
	}
	if _, err := svc.Resolve(context.Background(), input); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	_, err = svc.Resolve(context.Background(), input)
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second resolve, got %v", err)
	}
}

func TestAddMessageRejectsFinishedDispute(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeOther, Reason: "misc",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := svc.Close(context.Background(), CloseInput{
		DisputeID: dispute.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer, Reason: "never mind",
	}); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = svc.AddMessage(context.Background(), AddMessageInput{
		DisputeID: dispute.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer, Body: "hello?",
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on closed thread, got %v", err)
	}
}

func TestInternalMessagesHiddenFromParticipants(t *testing.T) {
	buyer := uuid.New()
	vendor := uuid.New()
	admin := uuid.New()
	order := deliveredOrder(buyer, vendor, time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeQuality, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := svc.AddMessage(context.Background(), AddMessageInput{
		DisputeID: dispute.ID, ActorID: admin, ActorRole: enums.ActorRoleAdmin,
		Body: "vendor has prior complaints", Internal: true,
	}); err != nil {
		t.Fatalf("AddMessage internal: %v", err)
	}
	if _, err := svc.AddMessage(context.Background(), AddMessageInput{
		DisputeID: dispute.ID, ActorID: vendor, ActorRole: enums.ActorRoleVendor,
		Body: "we will replace it",
	}); err != nil {
		t.Fatalf("AddMessage vendor: %v", err)
	}

	buyerView, err := svc.Get(context.Background(), dispute.ID, buyer, enums.ActorRoleBuyer)
	if err != nil {
		t.Fatalf("Get buyer view: %v", err)
	}
	if len(buyerView.Messages) != 1 {
		t.Fatalf("buyer should see one message, got %d", len(buyerView.Messages))
	}

	adminView, err := svc.Get(context.Background(), dispute.ID, admin, enums.ActorRoleAdmin)
	if err != nil {
		t.Fatalf("Get admin view: %v", err)
	}
	if len(adminView.Messages) != 2 {
		t.Fatalf("admin should see both messages, got %d", len(adminView.Messages))
	}
}

func TestInternalMessageRequiresAdmin(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeQuality, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = svc.AddMessage(context.Background(), AddMessageInput{
		DisputeID: dispute.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Body: "note to self", Internal: true,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestEscalateIsOneWay(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeQuality, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := svc.Escalate(context.Background(), EscalateInput{
		DisputeID: dispute.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer, Reason: "no response",
	}); err != nil {
		t.Fatalf("Escalate: %v", err)
	}

	err = svc.UpdateStatus(context.Background(), UpdateStatusInput{
		DisputeID: dispute.ID, ActorID: uuid.New(), ActorRole: enums.ActorRoleAdmin,
		Status: enums.DisputeStatusOpen,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("escalated dispute should not reopen, got %v", err)
	}
}

func TestAssignRequiresAdmin(t *testing.T) {
	buyer := uuid.New()
	order := deliveredOrder(buyer, uuid.New(), time.Hour)
	repo := &stubDisputesRepo{order: order}
	svc := newTestService(t, repo)

	dispute, err := svc.Open(context.Background(), OpenInput{
		OrderID: order.ID, ActorID: buyer, ActorRole: enums.ActorRoleBuyer,
		Type: enums.DisputeTypeQuality, Reason: "damaged",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	assignee := uuid.New()
	err = svc.Assign(context.Background(), AssignInput{
		DisputeID:  dispute.ID,
		ActorID:    buyer,
		ActorRole:  enums.ActorRoleBuyer,
		AssignedTo: types.NullableUUID{Valid: true, Value: &assignee},
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := svc.Assign(context.Background(), AssignInput{
		DisputeID:  dispute.ID,
		ActorID:    uuid.New(),
		ActorRole:  enums.ActorRoleAdmin,
		AssignedTo: types.NullableUUID{Valid: true, Value: &assignee},
	}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if repo.disputes[0].AssignedTo == nil || *repo.disputes[0].AssignedTo != assignee {
		t.Fatalf("expected assignee %s, got %v", assignee, repo.disputes[0].AssignedTo)
	}
}

func TestListScopesToCaller(t *testing.T) {
	repo := &stubDisputesRepo{}
	svc := newTestService(t, repo)

	buyer := uuid.New()
	if _, err := svc.List(context.Background(), buyer, enums.ActorRoleBuyer, pagination.Params{}, Filters{}); err != nil {
		t.Fatalf("List buyer: %v", err)
	}
	if repo.listFilters.OpenedBy == nil || *repo.listFilters.OpenedBy != buyer {
		t.Fatalf("buyer listing should filter by opener, got %+v", repo.listFilters)
	}

	vendor := uuid.New()
	if _, err := svc.List(context.Background(), vendor, enums.ActorRoleVendor, pagination.Params{}, Filters{}); err != nil {
		t.Fatalf("List vendor: %v", err)
	}
	if repo.listFilters.VendorID == nil || *repo.listFilters.VendorID != vendor {
		t.Fatalf("vendor listing should filter by vendor, got %+v", repo.listFilters)
	}

	if _, err := svc.List(context.Background(), uuid.New(), enums.ActorRoleAdmin, pagination.Params{}, Filters{}); err != nil {
		t.Fatalf("List admin: %v", err)
	}
	if repo.listFilters.OpenedBy != nil || repo.listFilters.VendorID != nil {
		t.Fatalf("admin listing should be unscoped, got %+v", repo.listFilters)
	}
}
