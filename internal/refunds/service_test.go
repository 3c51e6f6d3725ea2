package refunds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/internal/audit"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/metrics"
	"github.com/luisareyes-dev/tianguis-backend/pkg/square"
)

type stubRefundsRepo struct {
	dispute *models.Dispute
	order   *models.Order

	reversals map[uuid.UUID]int
}

func (s *stubRefundsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRefundsRepo) FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	if s.dispute == nil || s.dispute.ID != disputeID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.dispute
	return &copied, nil
}

func (s *stubRefundsRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubRefundsRepo) BeginProcessing(ctx context.Context, disputeID uuid.UUID, attemptKey string) (int64, error) {
	if s.dispute.RefundStatus == enums.RefundStatusProcessing || s.dispute.RefundStatus == enums.RefundStatusCompleted {
		return 0, nil
	}
	s.dispute.RefundStatus = enums.RefundStatusProcessing
	s.dispute.RefundAttemptKey = &attemptKey
	return 1, nil
}

func (s *stubRefundsRepo) UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error {
	if status, ok := updates["refund_status"].(enums.RefundStatus); ok {
		s.dispute.RefundStatus = status
	}
	if refundID, ok := updates["refund_id"].(string); ok {
		s.dispute.RefundID = &refundID
	}
	return nil
}

func (s *stubRefundsRepo) ApplyOrderRefund(ctx context.Context, orderID uuid.UUID, amountCents int, fullyRefunded bool) error {
	s.order.RefundedCents += amountCents
	if fullyRefunded {
		s.order.PaymentStatus = enums.PaymentStatusRefunded
	}
	return nil
}

func (s *stubRefundsRepo) ApplyCommissionReversal(ctx context.Context, itemID uuid.UUID, amountCents int) error {
	if s.reversals == nil {
		s.reversals = map[uuid.UUID]int{}
	}
	s.reversals[itemID] += amountCents
	for i := range s.order.Items {
		if s.order.Items[i].ID == itemID {
			s.order.Items[i].CommissionCents -= amountCents
			s.order.Items[i].VendorEarningsCents += amountCents
			s.order.Items[i].CommissionReversed += amountCents
		}
	}
	return nil
}

type stubGateway struct {
	refund    *sq.PaymentRefund
	refundErr error
	verify    *sq.PaymentRefund
	verifyErr error

	refundCalls int
	lastParams  square.RefundParams
}

func (s *stubGateway) RefundPayment(ctx context.Context, params square.RefundParams) (*sq.PaymentRefund, error) {
	s.refundCalls++
	s.lastParams = params
	return s.refund, s.refundErr
}

func (s *stubGateway) GetRefund(ctx context.Context, refundID string) (*sq.PaymentRefund, error) {
	return s.verify, s.verifyErr
}

func (s *stubGateway) Currency() string { return "USD" }

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

func statusPtr(value string) *string { return &value }

func gatewayRefund(id, status string) *sq.PaymentRefund {
	return &sq.PaymentRefund{ID: id, Status: statusPtr(status)}
}

func resolvedRefundFixture(amount int) (*models.Dispute, *models.Order) {
	paymentID := "pay-123"
	resolution := enums.ResolutionTypePartialRefund
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   3001,
		BuyerID:       uuid.New(),
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		PaymentID:     &paymentID,
		TotalCents:    10000,
	}
	order.Items = []models.OrderItem{
		{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			VendorID:            uuid.New(),
			FinalPriceCents:     6000,
			CommissionCents:     600,
			VendorEarningsCents: 5400,
		},
		{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			VendorID:            uuid.New(),
			FinalPriceCents:     4000,
			CommissionCents:     400,
			VendorEarningsCents: 3600,
		},
	}
	dispute := &models.Dispute{
		ID:           uuid.New(),
		OrderID:      order.ID,
		OpenedBy:     order.BuyerID,
		OpenedByRole: enums.ActorRoleBuyer,
		Type:         enums.DisputeTypeRefund,
		Status:       enums.DisputeStatusResolved,
		Resolution:   &resolution,
		RefundAmount: &amount,
		RefundStatus: enums.RefundStatusNone,
	}
	return dispute, order
}

func newTestService(t *testing.T, repo Repository, gateway Gateway) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, gateway, &metrics.RefundMetrics{},
		notifications.NoopDispatcher{}, &stubAuditor{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func adminProcess(disputeID uuid.UUID) ProcessInput {
	return ProcessInput{DisputeID: disputeID, ActorID: uuid.New(), ActorRole: enums.ActorRoleAdmin}
}

func TestProcessCompletedRefundAppliesBookkeeping(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refund: gatewayRefund("ref-1", "COMPLETED")}
	svc := newTestService(t, repo, gateway)

	result, err := svc.Process(context.Background(), adminProcess(dispute.ID))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Status != enums.RefundStatusCompleted || result.RefundID != "ref-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if repo.dispute.RefundStatus != enums.RefundStatusCompleted {
		t.Fatalf("expected completed refund status, got %s", repo.dispute.RefundStatus)
	}
	if repo.order.RefundedCents != 5000 {
		t.Fatalf("expected 5000 refunded cents, got %d", repo.order.RefundedCents)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("partial refund must not flip payment status, got %s", repo.order.PaymentStatus)
	}

	// 50% refund reverses half of each item's commission.
	if got := repo.reversals[order.Items[0].ID]; got != 300 {
		t.Fatalf("expected 300 reversed on first item, got %d", got)
	}
	if got := repo.reversals[order.Items[1].ID]; got != 200 {
		t.Fatalf("expected 200 reversed on second item, got %d", got)
	}
	if gateway.lastParams.IdempotencyKey == "" || gateway.lastParams.AmountCents != 5000 {
		t.Fatalf("unexpected gateway params %+v", gateway.lastParams)
	}
}

func TestProcessFullRefundFlipsPaymentStatus(t *testing.T) {
	dispute, order := resolvedRefundFixture(10000)
	full := enums.ResolutionTypeFullRefund
	dispute.Resolution = &full
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refund: gatewayRefund("ref-2", "COMPLETED")}
	svc := newTestService(t, repo, gateway)

	if _, err := svc.Process(context.Background(), adminProcess(dispute.ID)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if repo.order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %s", repo.order.PaymentStatus)
	}
	if got := repo.reversals[order.Items[0].ID]; got != 600 {
		t.Fatalf("full refund should reverse the whole commission, got %d", got)
	}
}

func TestProcessPendingKeepsProcessing(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refund: gatewayRefund("ref-3", "PENDING")}
	svc := newTestService(t, repo, gateway)

	result, err := svc.Process(context.Background(), adminProcess(dispute.ID))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Status != enums.RefundStatusProcessing {
		t.Fatalf("expected processing, got %s", result.Status)
	}
	if repo.dispute.RefundStatus != enums.RefundStatusProcessing {
		t.Fatalf("dispute should stay processing, got %s", repo.dispute.RefundStatus)
	}
	if repo.dispute.RefundID == nil || *repo.dispute.RefundID != "ref-3" {
		t.Fatalf("expected stored refund reference, got %v", repo.dispute.RefundID)
	}
	if repo.order.RefundedCents != 0 {
		t.Fatalf("pending refund must not touch order totals, got %d", repo.order.RefundedCents)
	}
}

func TestProcessGatewayFailureMarksFailed(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refundErr: pkgerrors.New(pkgerrors.CodeGateway, "square 502")}
	svc := newTestService(t, repo, gateway)

	_, err := svc.Process(context.Background(), adminProcess(dispute.ID))
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if repo.dispute.RefundStatus != enums.RefundStatusFailed {
		t.Fatalf("expected failed refund status, got %s", repo.dispute.RefundStatus)
	}
	if len(repo.reversals) != 0 {
		t.Fatalf("failed refund must not reverse commission, got %v", repo.reversals)
	}
}

func TestProcessSecondAttemptConflicts(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	refundID := "ref-4"
	dispute.RefundStatus = enums.RefundStatusProcessing
	dispute.RefundID = &refundID
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refund: gatewayRefund(refundID, "COMPLETED")}
	svc := newTestService(t, repo, gateway)

	_, err := svc.Process(context.Background(), adminProcess(dispute.ID))
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict while processing, got %v", err)
	}
	if gateway.refundCalls != 0 {
		t.Fatalf("gateway must not be called twice, got %d calls", gateway.refundCalls)
	}
}

func TestProcessResumesStrandedClaim(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	storedKey := "dispute-refund-" + dispute.ID.String()
	dispute.RefundStatus = enums.RefundStatusProcessing
	dispute.RefundAttemptKey = &storedKey
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refund: gatewayRefund("ref-7", "COMPLETED")}
	svc := newTestService(t, repo, gateway)

	result, err := svc.Process(context.Background(), adminProcess(dispute.ID))
	if err != nil {
		t.Fatalf("resumed Process: %v", err)
	}
	if result.Status != enums.RefundStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if gateway.refundCalls != 1 {
		t.Fatalf("expected one gateway call, got %d", gateway.refundCalls)
	}
	if gateway.lastParams.IdempotencyKey != storedKey {
		t.Fatalf("resume must reuse the stored attempt key, got %q", gateway.lastParams.IdempotencyKey)
	}
	if repo.dispute.RefundStatus != enums.RefundStatusCompleted {
		t.Fatalf("expected completed refund status, got %s", repo.dispute.RefundStatus)
	}
}

func TestProcessPartialRefundMovesCommissionToEarnings(t *testing.T) {
	paymentID := "pay-456"
	resolution := enums.ResolutionTypePartialRefund
	amount := 8000
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   3002,
		BuyerID:       uuid.New(),
		Status:        enums.OrderStatusDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		PaymentID:     &paymentID,
		TotalCents:    20000,
		Items: []models.OrderItem{
			{
				ID:                  uuid.New(),
				VendorID:            uuid.New(),
				FinalPriceCents:     20000,
				CommissionCents:     2000,
				VendorEarningsCents: 18000,
			},
		},
	}
	order.Items[0].OrderID = order.ID
	dispute := &models.Dispute{
		ID:           uuid.New(),
		OrderID:      order.ID,
		OpenedBy:     order.BuyerID,
		OpenedByRole: enums.ActorRoleBuyer,
		Type:         enums.DisputeTypeRefund,
		Status:       enums.DisputeStatusResolved,
		Resolution:   &resolution,
		RefundAmount: &amount,
		RefundStatus: enums.RefundStatusNone,
	}
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{refund: gatewayRefund("ref-8", "COMPLETED")}
	svc := newTestService(t, repo, gateway)

	if _, err := svc.Process(context.Background(), adminProcess(dispute.ID)); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// A 40% refund moves 40% of the commission back to the vendor.
	item := repo.order.Items[0]
	if item.CommissionCents != 1200 {
		t.Fatalf("expected commission 1200, got %d", item.CommissionCents)
	}
	if item.VendorEarningsCents != 18800 {
		t.Fatalf("expected earnings 18800, got %d", item.VendorEarningsCents)
	}
	if item.CommissionReversed != 800 {
		t.Fatalf("expected 800 reversed, got %d", item.CommissionReversed)
	}
	if item.CommissionCents+item.VendorEarningsCents != item.FinalPriceCents {
		t.Fatalf("split must still sum to final price")
	}
}

func TestProcessPreconditionChain(t *testing.T) {
	base := func() (*stubRefundsRepo, Service, *stubGateway) {
		dispute, order := resolvedRefundFixture(5000)
		repo := &stubRefundsRepo{dispute: dispute, order: order}
		gateway := &stubGateway{refund: gatewayRefund("ref", "COMPLETED")}
		return repo, newTestService(t, repo, gateway), gateway
	}

	repo, svc, _ := base()
	repo.dispute.Status = enums.DisputeStatusOpen
	if _, err := svc.Process(context.Background(), adminProcess(repo.dispute.ID)); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unresolved dispute: expected state conflict, got %v", err)
	}

	repo, svc, _ = base()
	noAction := enums.ResolutionTypeNoAction
	repo.dispute.Resolution = &noAction
	if _, err := svc.Process(context.Background(), adminProcess(repo.dispute.ID)); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("non-refund resolution: expected state conflict, got %v", err)
	}

	repo, svc, _ = base()
	repo.order.PaymentID = nil
	if _, err := svc.Process(context.Background(), adminProcess(repo.dispute.ID)); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("missing payment reference: expected state conflict, got %v", err)
	}

	repo, svc, _ = base()
	repo.order.PaymentStatus = enums.PaymentStatusRefunded
	if _, err := svc.Process(context.Background(), adminProcess(repo.dispute.ID)); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("already refunded order: expected state conflict, got %v", err)
	}

	repo, svc, _ = base()
	bad := 20000
	repo.dispute.RefundAmount = &bad
	if _, err := svc.Process(context.Background(), adminProcess(repo.dispute.ID)); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("oversized amount: expected validation error, got %v", err)
	}
}

func TestProcessRequiresAdmin(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	svc := newTestService(t, repo, &stubGateway{})

	_, err := svc.Process(context.Background(), ProcessInput{
		DisputeID: dispute.ID, ActorID: order.BuyerID, ActorRole: enums.ActorRoleBuyer,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestConfirmFinalizesPendingRefund(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	refundID := "ref-5"
	dispute.RefundStatus = enums.RefundStatusProcessing
	dispute.RefundID = &refundID
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{verify: gatewayRefund(refundID, "COMPLETED")}
	svc := newTestService(t, repo, gateway)

	result, err := svc.Confirm(context.Background(), ConfirmInput{
		DisputeID: dispute.ID, ActorID: uuid.New(), ActorRole: enums.ActorRoleAdmin,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Status != enums.RefundStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if repo.order.RefundedCents != 5000 {
		t.Fatalf("expected refunded cents applied, got %d", repo.order.RefundedCents)
	}
	if got := repo.reversals[order.Items[0].ID]; got != 300 {
		t.Fatalf("expected reversal on confirm, got %d", got)
	}
}

func TestConfirmFailedRefundMarksFailed(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	refundID := "ref-6"
	dispute.RefundStatus = enums.RefundStatusProcessing
	dispute.RefundID = &refundID
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	gateway := &stubGateway{verify: gatewayRefund(refundID, "FAILED")}
	svc := newTestService(t, repo, gateway)

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		DisputeID: dispute.ID, ActorID: uuid.New(), ActorRole: enums.ActorRoleAdmin,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeGateway {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if repo.dispute.RefundStatus != enums.RefundStatusFailed {
		t.Fatalf("expected failed status, got %s", repo.dispute.RefundStatus)
	}
}

func TestConfirmRequiresProcessingState(t *testing.T) {
	dispute, order := resolvedRefundFixture(5000)
	repo := &stubRefundsRepo{dispute: dispute, order: order}
	svc := newTestService(t, repo, &stubGateway{})

	_, err := svc.Confirm(context.Background(), ConfirmInput{
		DisputeID: dispute.ID, ActorID: uuid.New(), ActorRole: enums.ActorRoleAdmin,
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}
