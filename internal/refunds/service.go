package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/internal/audit"
	"github.com/luisareyes-dev/tianguis-backend/internal/commission"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/metrics"
	"github.com/luisareyes-dev/tianguis-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reconciles resolved refund disputes against the payment gateway.
type Service interface {
	Process(ctx context.Context, input ProcessInput) (*Result, error)
	Confirm(ctx context.Context, input ConfirmInput) (*Result, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	gateway  Gateway
	metrics  *metrics.RefundMetrics
	notifier notifications.Dispatcher
	auditor  audit.Recorder
}

// NewService builds the refund service with the required dependencies.
func NewService(repo Repository, tx txRunner, gateway Gateway, m *metrics.RefundMetrics, notifier notifications.Dispatcher, auditor audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{repo: repo, tx: tx, gateway: gateway, metrics: m, notifier: notifier, auditor: auditor}, nil
}

// Process runs the two-phase refund: claim the dispute row first, then make
// exactly one gateway call for this attempt. A crash before the gateway call
// leaves a processing row with no gateway reference; a later Process call
// resumes it under the same attempt key. Once the gateway responds pending,
// Confirm owns the follow-up.
func (s *service) Process(ctx context.Context, input ProcessInput) (*Result, error) {
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refund processing is admin only")
	}

	dispute, order, err := s.loadRefundable(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	amount := *dispute.RefundAmount

	attemptKey := refundAttemptKey(dispute)
	if dispute.RefundStatus == enums.RefundStatusProcessing {
		// Stranded claim: a prior attempt died before reaching the gateway.
		// Reuse the stored key so the gateway cannot issue a second refund.
		if dispute.RefundAttemptKey != nil && *dispute.RefundAttemptKey != "" {
			attemptKey = *dispute.RefundAttemptKey
		}
	} else {
		rows, err := s.repo.BeginProcessing(ctx, dispute.ID, attemptKey)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim refund")
		}
		if rows == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "refund is already processing or completed")
		}
	}

	s.metrics.IncAttempt("process")
	started := time.Now()
	refund, err := s.gateway.RefundPayment(ctx, square.RefundParams{
		PaymentID:      *order.PaymentID,
		AmountCents:    int64(amount),
		Currency:       s.gateway.Currency(),
		Reason:         fmt.Sprintf("dispute %s", dispute.ID),
		IdempotencyKey: attemptKey,
	})
	s.metrics.ObserveDuration("process", time.Since(started))
	if err != nil {
		return nil, s.markFailed(ctx, dispute, order, input.ActorID, input.ActorRole, err)
	}

	return s.settle(ctx, dispute, order, refund, amount, input.ActorID, input.ActorRole)
}

// Confirm follows up on a refund the gateway previously reported as pending.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*Result, error) {
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refund confirmation is admin only")
	}

	dispute, err := s.repo.FindDispute(ctx, input.DisputeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	if dispute.RefundStatus != enums.RefundStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund is not awaiting confirmation")
	}
	if dispute.RefundID == nil || *dispute.RefundID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund has no gateway reference yet")
	}
	if dispute.RefundAmount == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processing refund is missing its amount")
	}
	order, err := s.repo.FindOrder(ctx, dispute.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	s.metrics.IncAttempt("confirm")
	started := time.Now()
	refund, err := s.gateway.GetRefund(ctx, *dispute.RefundID)
	s.metrics.ObserveDuration("confirm", time.Since(started))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "verify refund")
	}

	return s.settle(ctx, dispute, order, refund, *dispute.RefundAmount, input.ActorID, input.ActorRole)
}

// loadRefundable walks the precondition chain in order so each failure mode
// yields a distinct error.
func (s *service) loadRefundable(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, *models.Order, error) {
	if disputeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	dispute, err := s.repo.FindDispute(ctx, disputeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}

	switch dispute.RefundStatus {
	case enums.RefundStatusProcessing:
		// A processing row that already holds a gateway reference belongs to
		// Confirm. One without a reference is a stranded claim that Process
		// may resume.
		if dispute.RefundID != nil && *dispute.RefundID != "" {
			return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "refund is already processing")
		}
	case enums.RefundStatusCompleted:
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "refund is already completed")
	}
	if dispute.Status != enums.DisputeStatusResolved {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is not resolved")
	}
	if dispute.Resolution == nil || !dispute.Resolution.RequiresRefund() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "resolution does not call for a refund")
	}

	order, err := s.repo.FindOrder(ctx, dispute.OrderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.PaymentID == nil || *order.PaymentID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment reference")
	}
	if order.PaymentStatus == enums.PaymentStatusRefunded {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already refunded")
	}
	if dispute.RefundAmount == nil || *dispute.RefundAmount <= 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if *dispute.RefundAmount > order.TotalCents {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total")
	}
	return dispute, order, nil
}

func (s *service) settle(ctx context.Context, dispute *models.Dispute, order *models.Order, refund *sq.PaymentRefund, amount int, actorID uuid.UUID, actorRole enums.ActorRole) (*Result, error) {
	refundID := ""
	if refund != nil && refund.ID != "" {
		refundID = refund.ID
	}

	switch {
	case square.RefundCompleted(refund):
		if err := s.finalizeCompleted(ctx, dispute, order, refundID, amount); err != nil {
			return nil, err
		}
		s.metrics.IncOutcome("completed")
		s.auditor.Record(ctx, audit.Entry{
			Category:   enums.AuditCategoryRefunds,
			Action:     "refund.completed",
			ActorID:    actorID,
			ActorRole:  actorRole,
			EntityType: "dispute",
			EntityID:   dispute.ID,
			Detail:     map[string]any{"order_id": order.ID, "amount_cents": amount, "refund_id": refundID},
		})
		s.notifyRefund(ctx, order, enums.NotificationRefundCompleted,
			fmt.Sprintf("A refund of %d cents was issued for order #%d", amount, order.OrderNumber))
		return &Result{DisputeID: dispute.ID, Status: enums.RefundStatusCompleted, RefundID: refundID, AmountCents: amount}, nil

	case square.RefundFailed(refund):
		err := pkgerrors.New(pkgerrors.CodeGateway, "gateway rejected the refund")
		return nil, s.markFailed(ctx, dispute, order, actorID, actorRole, err)

	default:
		// Pending at the gateway. Keep the row in processing and remember the
		// refund reference so Confirm can finish the job.
		if refundID != "" {
			if err := s.repo.UpdateDispute(ctx, dispute.ID, map[string]any{"refund_id": refundID}); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refund reference")
			}
		}
		s.metrics.IncOutcome("pending")
		s.notifyRefund(ctx, order, enums.NotificationRefundPending,
			fmt.Sprintf("The refund for order #%d is being processed", order.OrderNumber))
		return &Result{DisputeID: dispute.ID, Status: enums.RefundStatusProcessing, RefundID: refundID, AmountCents: amount}, nil
	}
}

// finalizeCompleted applies the refund bookkeeping atomically: dispute status,
// order refunded total, and the per-item commission reversal move together.
func (s *service) finalizeCompleted(ctx context.Context, dispute *models.Dispute, order *models.Order, refundID string, amount int) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{"refund_status": enums.RefundStatusCompleted}
		if refundID != "" {
			updates["refund_id"] = refundID
		}
		if err := repo.UpdateDispute(ctx, dispute.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete refund")
		}

		fullyRefunded := order.RefundedCents+amount >= order.TotalCents
		if err := repo.ApplyOrderRefund(ctx, order.ID, amount, fullyRefunded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply order refund")
		}

		// CommissionCents already reflects earlier reversals, so the
		// proportional amount can never push the commission below zero.
		for _, item := range order.Items {
			reverse := commission.ReverseAmount(amount, order.TotalCents, item.CommissionCents)
			if reverse <= 0 {
				continue
			}
			if err := repo.ApplyCommissionReversal(ctx, item.ID, reverse); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse commission")
			}
		}
		return nil
	})
}

func (s *service) markFailed(ctx context.Context, dispute *models.Dispute, order *models.Order, actorID uuid.UUID, actorRole enums.ActorRole, cause error) error {
	if err := s.repo.UpdateDispute(ctx, dispute.ID, map[string]any{"refund_status": enums.RefundStatusFailed}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark refund failed")
	}
	s.metrics.IncOutcome("failed")
	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryRefunds,
		Action:     "refund.failed",
		ActorID:    actorID,
		ActorRole:  actorRole,
		EntityType: "dispute",
		EntityID:   dispute.ID,
		Detail:     map[string]any{"order_id": order.ID, "error": cause.Error()},
	})
	s.notifyRefund(ctx, order, enums.NotificationRefundFailed,
		fmt.Sprintf("The refund for order #%d could not be processed", order.OrderNumber))
	if typed := pkgerrors.As(cause); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, cause, "refund payment")
}

func (s *service) notifyRefund(ctx context.Context, order *models.Order, t enums.NotificationType, body string) {
	messages := []notifications.Message{notifications.NewMessage(order.BuyerID, t, body)}
	seen := map[uuid.UUID]struct{}{order.BuyerID: {}}
	for _, item := range order.Items {
		if _, dup := seen[item.VendorID]; dup {
			continue
		}
		seen[item.VendorID] = struct{}{}
		messages = append(messages, notifications.NewMessage(item.VendorID, t, body))
	}
	s.notifier.Dispatch(ctx, messages...)
}

// refundAttemptKey derives the gateway idempotency key from the dispute so a
// resumed attempt cannot double-refund. Retries after a hard failure mint a
// fresh key because the gateway would replay the failed response.
func refundAttemptKey(dispute *models.Dispute) string {
	if dispute.RefundAttemptKey == nil || *dispute.RefundAttemptKey == "" {
		return "dispute-refund-" + dispute.ID.String()
	}
	return "dispute-refund-" + dispute.ID.String() + "-" + uuid.NewString()
}
