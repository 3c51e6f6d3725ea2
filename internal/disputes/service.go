package disputes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/internal/audit"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/internal/orders"
	"github.com/luisareyes-dev/tianguis-backend/pkg/config"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	dbtypes "github.com/luisareyes-dev/tianguis-backend/pkg/db/types"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the dispute workflow operations.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.Dispute, error)
	Get(ctx context.Context, disputeID, actorID uuid.UUID, role enums.ActorRole) (*models.Dispute, error)
	List(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, params pagination.Params, filters Filters) (*List, error)
	AddMessage(ctx context.Context, input AddMessageInput) (*models.DisputeMessage, error)
	Assign(ctx context.Context, input AssignInput) error
	UpdateStatus(ctx context.Context, input UpdateStatusInput) error
	UpdatePriority(ctx context.Context, input UpdatePriorityInput) error
	Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error)
	Escalate(ctx context.Context, input EscalateInput) error
	Close(ctx context.Context, input CloseInput) error
}

type service struct {
	repo     Repository
	tx       txRunner
	cfg      config.DisputesConfig
	notifier notifications.Dispatcher
	auditor  audit.Recorder
}

// NewService builds the dispute service with the required dependencies.
func NewService(repo Repository, tx txRunner, cfg config.DisputesConfig, notifier notifications.Dispatcher, auditor audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if cfg.Window <= 0 {
		cfg.Window = 48 * time.Hour
	}
	return &service{repo: repo, tx: tx, cfg: cfg, notifier: notifier, auditor: auditor}, nil
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Dispute, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute type")
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.DisputePriorityMedium
	}
	if !priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute priority")
	}

	var dispute *models.Dispute
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		order = loaded

		if input.ActorRole != enums.ActorRoleAdmin {
			if input.ActorRole != enums.ActorRoleBuyer || loaded.BuyerID != input.ActorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the order buyer may open a dispute")
			}
		}
		if !disputableStatus(loaded.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order in status %s cannot be disputed", loaded.Status))
		}
		if input.ActorRole != enums.ActorRoleAdmin {
			if loaded.DeliveredAt == nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery timestamp")
			}
			if time.Since(*loaded.DeliveredAt) > s.cfg.Window {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute window has closed").
					WithDetails(map[string]any{"window": s.cfg.Window.String()})
			}
		}
		if err := validateItemIDs(loaded.Items, input.ItemIDs); err != nil {
			return err
		}

		created := &models.Dispute{
			OrderID:      loaded.ID,
			OpenedBy:     input.ActorID,
			OpenedByRole: input.ActorRole,
			Type:         input.Type,
			Status:       enums.DisputeStatusOpen,
			Priority:     priority,
			Reason:       input.Reason,
			Evidence:     pq.StringArray(input.Evidence),
			ItemIDs:      dbtypes.UUIDArray(input.ItemIDs),
			RefundStatus: enums.RefundStatusNone,
		}
		if err := repo.CreateDispute(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}
		dispute = created

		if loaded.Status == enums.OrderStatusDelivered {
			if err := repo.UpdateOrder(ctx, loaded.ID, map[string]any{"status": enums.OrderStatusDisputed}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freeze disputed order")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryDisputes,
		Action:     "dispute.opened",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "dispute",
		EntityID:   dispute.ID,
		Detail:     map[string]any{"order_id": input.OrderID, "type": input.Type},
	})
	s.notifier.Dispatch(ctx, disputeMessages(order, dispute, input.ActorID,
		enums.NotificationDisputeOpened,
		fmt.Sprintf("A dispute was opened on order #%d", order.OrderNumber))...)
	return dispute, nil
}

func (s *service) Get(ctx context.Context, disputeID, actorID uuid.UUID, role enums.ActorRole) (*models.Dispute, error) {
	dispute, order, err := s.loadDisputeWithOrder(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if role != enums.ActorRoleAdmin {
		if !isParticipant(order, actorID, role) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a dispute participant")
		}
		dispute.Messages = visibleMessages(dispute.Messages)
	}
	return dispute, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, params pagination.Params, filters Filters) (*List, error) {
	filters.OpenedBy = nil
	filters.VendorID = nil
	switch role {
	case enums.ActorRoleAdmin:
	case enums.ActorRoleBuyer:
		filters.OpenedBy = &actorID
	case enums.ActorRoleVendor:
		filters.VendorID = &actorID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	list, err := s.repo.ListDisputes(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	return list, nil
}

func (s *service) AddMessage(ctx context.Context, input AddMessageInput) (*models.DisputeMessage, error) {
	if input.Body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}
	if input.Internal && input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "internal notes are admin only")
	}

	dispute, order, err := s.loadDisputeWithOrder(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	if input.ActorRole != enums.ActorRoleAdmin && !isParticipant(order, input.ActorID, input.ActorRole) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a dispute participant")
	}
	if dispute.Status == enums.DisputeStatusResolved || dispute.Status == enums.DisputeStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute thread is closed")
	}

	message := &models.DisputeMessage{
		DisputeID:  dispute.ID,
		SenderID:   input.ActorID,
		SenderRole: input.ActorRole,
		Body:       input.Body,
		Internal:   input.Internal,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute message")
	}

	if !input.Internal {
		s.notifier.Dispatch(ctx, disputeMessages(order, dispute, input.ActorID,
			enums.NotificationDisputeMessage,
			fmt.Sprintf("New message on the dispute for order #%d", order.OrderNumber))...)
	}
	return message, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) error {
	if input.ActorRole != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "assignment is admin only")
	}
	if !input.AssignedTo.Valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "assigned_to must be present (null clears the assignee)")
	}

	dispute, _, err := s.loadDisputeWithOrder(ctx, input.DisputeID)
	if err != nil {
		return err
	}
	if dispute.Status == enums.DisputeStatusResolved || dispute.Status == enums.DisputeStatusClosed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot assign a finished dispute")
	}

	if err := s.repo.UpdateDispute(ctx, dispute.ID, map[string]any{"assigned_to": input.AssignedTo.Value}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign dispute")
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryDisputes,
		Action:     "dispute.assigned",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "dispute",
		EntityID:   dispute.ID,
		Detail:     map[string]any{"assigned_to": input.AssignedTo.Value},
	})
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) error {
	if input.ActorRole != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "status changes are admin only")
	}
	if input.Status != enums.DisputeStatusOpen && input.Status != enums.DisputeStatusInvestigating {
		return pkgerrors.New(pkgerrors.CodeValidation, "status may only move between open and investigating")
	}

	rows, err := s.repo.UpdateDisputeWhereStatus(ctx, input.DisputeID,
		[]enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInvestigating},
		map[string]any{"status": input.Status})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute status")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is not open or investigating")
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryDisputes,
		Action:     "dispute.status_changed",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "dispute",
		EntityID:   input.DisputeID,
		Detail:     map[string]any{"status": input.Status},
	})
	return nil
}

func (s *service) UpdatePriority(ctx context.Context, input UpdatePriorityInput) error {
	if input.ActorRole != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "priority changes are admin only")
	}
	if !input.Priority.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute priority")
	}

	rows, err := s.repo.UpdateDisputeWhereStatus(ctx, input.DisputeID,
		[]enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInvestigating, enums.DisputeStatusEscalated},
		map[string]any{"priority": input.Priority})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute priority")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is already finished")
	}
	return nil
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error) {
	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "resolution is admin only")
	}
	if !input.Resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid resolution type")
	}
	if input.Notes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution notes required")
	}

	var dispute *models.Dispute
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, loadedOrder, err := loadDisputeWithOrder(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		order = loadedOrder

		if input.Resolution.RequiresRefund() {
			if input.RefundAmountCents == nil || *input.RefundAmountCents <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "refund resolutions require a positive refund amount")
			}
			if *input.RefundAmountCents > loadedOrder.TotalCents {
				return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total")
			}
		} else if input.RefundAmountCents != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund amount only valid for refund resolutions")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":           enums.DisputeStatusResolved,
			"resolution":       input.Resolution,
			"resolution_notes": input.Notes,
			"resolved_at":      now,
		}
		if input.Resolution.RequiresRefund() {
			updates["refund_amount_cents"] = *input.RefundAmountCents
		}
		rows, err := repo.UpdateDisputeWhereStatus(ctx, input.DisputeID,
			[]enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInvestigating},
			updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve dispute")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is not open or investigating")
		}

		loaded.Status = enums.DisputeStatusResolved
		loaded.Resolution = &input.Resolution
		loaded.ResolutionNotes = &input.Notes
		loaded.RefundAmount = input.RefundAmountCents
		loaded.ResolvedAt = &now
		dispute = loaded

		return restoreOrderStatus(ctx, repo, loadedOrder, loaded.ID)
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryDisputes,
		Action:     "dispute.resolved",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "dispute",
		EntityID:   dispute.ID,
		Detail:     map[string]any{"resolution": input.Resolution, "refund_amount_cents": input.RefundAmountCents},
	})
	s.notifier.Dispatch(ctx, disputeMessages(order, dispute, input.ActorID,
		enums.NotificationDisputeResolved,
		fmt.Sprintf("The dispute on order #%d was resolved (%s)", order.OrderNumber, input.Resolution))...)
	return dispute, nil
}

func (s *service) Escalate(ctx context.Context, input EscalateInput) error {
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "escalation reason required")
	}

	dispute, order, err := s.loadDisputeWithOrder(ctx, input.DisputeID)
	if err != nil {
		return err
	}
	if input.ActorRole != enums.ActorRoleAdmin && !isParticipant(order, input.ActorID, input.ActorRole) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a dispute participant")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateDisputeWhereStatus(ctx, dispute.ID,
			[]enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInvestigating},
			map[string]any{"status": enums.DisputeStatusEscalated})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "escalate dispute")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute cannot be escalated from its current state")
		}
		return repo.CreateMessage(ctx, &models.DisputeMessage{
			DisputeID:  dispute.ID,
			SenderID:   input.ActorID,
			SenderRole: input.ActorRole,
			Body:       "Escalated: " + input.Reason,
		})
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryDisputes,
		Action:     "dispute.escalated",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "dispute",
		EntityID:   dispute.ID,
		Detail:     map[string]any{"reason": input.Reason},
	})
	s.notifier.Dispatch(ctx, disputeMessages(order, dispute, input.ActorID,
		enums.NotificationDisputeEscalated,
		fmt.Sprintf("The dispute on order #%d was escalated", order.OrderNumber))...)
	return nil
}

func (s *service) Close(ctx context.Context, input CloseInput) error {
	dispute, order, err := s.loadDisputeWithOrder(ctx, input.DisputeID)
	if err != nil {
		return err
	}
	if input.ActorRole != enums.ActorRoleAdmin && dispute.OpenedBy != input.ActorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the opener or an admin may close a dispute")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()
		updates := map[string]any{
			"status":    enums.DisputeStatusClosed,
			"closed_at": now,
		}
		rows, err := repo.UpdateDisputeWhereStatus(ctx, dispute.ID,
			[]enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusInvestigating, enums.DisputeStatusEscalated},
			updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close dispute")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is already finished")
		}
		if input.Reason != "" {
			if err := repo.CreateMessage(ctx, &models.DisputeMessage{
				DisputeID:  dispute.ID,
				SenderID:   input.ActorID,
				SenderRole: input.ActorRole,
				Body:       "Closed: " + input.Reason,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record close reason")
			}
		}
		return restoreOrderStatus(ctx, repo, order, dispute.ID)
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryDisputes,
		Action:     "dispute.closed",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "dispute",
		EntityID:   dispute.ID,
		Detail:     map[string]any{"reason": input.Reason},
	})
	s.notifier.Dispatch(ctx, disputeMessages(order, dispute, input.ActorID,
		enums.NotificationDisputeClosed,
		fmt.Sprintf("The dispute on order #%d was closed", order.OrderNumber))...)
	return nil
}

func (s *service) loadDisputeWithOrder(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, *models.Order, error) {
	return loadDisputeWithOrder(ctx, s.repo, disputeID)
}

func loadDisputeWithOrder(ctx context.Context, repo Repository, disputeID uuid.UUID) (*models.Dispute, *models.Order, error) {
	if disputeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	dispute, err := repo.FindDispute(ctx, disputeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	order, err := repo.FindOrder(ctx, dispute.OrderID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute order")
	}
	return dispute, order, nil
}

// restoreOrderStatus lifts the disputed freeze once the order has no other
// active dispute left.
func restoreOrderStatus(ctx context.Context, repo Repository, order *models.Order, excludeDispute uuid.UUID) error {
	if order.Status != enums.OrderStatusDisputed {
		return nil
	}
	active, err := repo.CountActiveForOrder(ctx, order.ID, excludeDispute)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active disputes")
	}
	if active > 0 {
		return nil
	}
	restored := enums.OrderStatusDelivered
	if order.CompletedAt != nil {
		restored = enums.OrderStatusCompleted
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": restored}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore order status")
	}
	return nil
}

func disputableStatus(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusDelivered, enums.OrderStatusCompleted, enums.OrderStatusDisputed:
		return true
	}
	return false
}

func validateItemIDs(items []models.OrderItem, itemIDs []uuid.UUID) error {
	known := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
	}
	for _, id := range itemIDs {
		if _, ok := known[id]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to the order").
				WithDetails(map[string]any{"item_id": id})
		}
	}
	return nil
}

func isParticipant(order *models.Order, actorID uuid.UUID, role enums.ActorRole) bool {
	switch role {
	case enums.ActorRoleBuyer:
		return order.BuyerID == actorID
	case enums.ActorRoleVendor:
		for _, vendorID := range orders.VendorIDs(order.Items) {
			if vendorID == actorID {
				return true
			}
		}
	}
	return false
}

func visibleMessages(messages []models.DisputeMessage) []models.DisputeMessage {
	out := make([]models.DisputeMessage, 0, len(messages))
	for _, message := range messages {
		if message.Internal {
			continue
		}
		out = append(out, message)
	}
	return out
}

// disputeMessages fans a dispute event out to the buyer and every vendor on
// the order, skipping the actor who triggered the event.
func disputeMessages(order *models.Order, dispute *models.Dispute, actorID uuid.UUID, t enums.NotificationType, body string) []notifications.Message {
	recipients := append([]uuid.UUID{order.BuyerID}, orders.VendorIDs(order.Items)...)
	out := make([]notifications.Message, 0, len(recipients))
	seen := map[uuid.UUID]struct{}{actorID: {}}
	for _, recipient := range recipients {
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		message := notifications.NewMessage(recipient, t, body)
		link := "/disputes/" + dispute.ID.String()
		message.Link = &link
		out = append(out, message)
	}
	return out
}
