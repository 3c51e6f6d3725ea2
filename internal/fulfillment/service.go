package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/internal/audit"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/internal/orders"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the fulfillment pipeline operations. Per-vendor actions
// touch only the acting vendor's rows and run independently of other
// vendors on the same order.
type Service interface {
	AdvanceItem(ctx context.Context, input AdvanceItemInput) (*models.OrderItem, error)
	VendorReadyForPickup(ctx context.Context, input VendorActionInput) error
	VendorBookCourier(ctx context.Context, input VendorActionInput) error
	VendorMarkDelivered(ctx context.Context, input VendorActionInput) error
	OrderReadyForPickup(ctx context.Context, input OrderActionInput) error
	OrderBookCourier(ctx context.Context, input OrderActionInput) error
	OrderMarkDelivered(ctx context.Context, input OrderActionInput) error
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier notifications.Dispatcher
	auditor  audit.Recorder
}

// NewService builds the fulfillment service with the required dependencies.
func NewService(repo Repository, tx txRunner, notifier notifications.Dispatcher, auditor audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
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
	return &service{repo: repo, tx: tx, notifier: notifier, auditor: auditor}, nil
}

func (s *service) AdvanceItem(ctx context.Context, input AdvanceItemInput) (*models.OrderItem, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and item ids required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment status")
	}

	var item *models.OrderItem
	var deliveredOrder *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadFulfillableOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		loaded, err := repo.FindItem(ctx, input.OrderID, input.ItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if input.ActorRole != enums.ActorRoleAdmin && loaded.VendorID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
		}

		next, ok := loaded.FulfillmentStatus.Next()
		if !ok || next != input.Target {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move item from %s to %s", loaded.FulfillmentStatus, input.Target)).
				WithDetails(map[string]any{"current": loaded.FulfillmentStatus, "target": input.Target})
		}

		now := time.Now().UTC()
		rows, err := repo.AdvanceItem(ctx, loaded.ID, loaded.FulfillmentStatus, input.Target, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance item")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item state changed concurrently")
		}

		loaded.FulfillmentStatus = input.Target
		item = loaded

		delivered, err := s.recomputeOrderStatus(ctx, repo, order, now)
		if err != nil {
			return err
		}
		deliveredOrder = delivered
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     "item." + string(input.Target),
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "order_item",
		EntityID:   item.ID,
		Detail:     map[string]any{"order_id": input.OrderID},
	})
	s.notifyDelivered(ctx, deliveredOrder)
	return item, nil
}

func (s *service) VendorReadyForPickup(ctx context.Context, input VendorActionInput) error {
	return s.vendorAction(ctx, input, enums.ItemFulfillmentStatusPending, enums.ItemFulfillmentStatusPacked, "vendor.ready_for_pickup")
}

func (s *service) VendorBookCourier(ctx context.Context, input VendorActionInput) error {
	return s.vendorAction(ctx, input, enums.ItemFulfillmentStatusPacked, enums.ItemFulfillmentStatusHandedToCourier, "vendor.book_courier")
}

func (s *service) VendorMarkDelivered(ctx context.Context, input VendorActionInput) error {
	return s.vendorAction(ctx, input, enums.ItemFulfillmentStatusHandedToCourier, enums.ItemFulfillmentStatusDelivered, "vendor.mark_delivered")
}

func (s *service) OrderReadyForPickup(ctx context.Context, input OrderActionInput) error {
	return s.orderAction(ctx, input, enums.ItemFulfillmentStatusPacked, enums.ItemFulfillmentStatusPacked, "order.ready_for_pickup")
}

func (s *service) OrderBookCourier(ctx context.Context, input OrderActionInput) error {
	return s.orderAction(ctx, input, enums.ItemFulfillmentStatusPacked, enums.ItemFulfillmentStatusHandedToCourier, "order.book_courier")
}

func (s *service) OrderMarkDelivered(ctx context.Context, input OrderActionInput) error {
	return s.orderAction(ctx, input, enums.ItemFulfillmentStatusHandedToCourier, enums.ItemFulfillmentStatusDelivered, "order.mark_delivered")
}

func (s *service) vendorAction(ctx context.Context, input VendorActionInput, from, to enums.ItemFulfillmentStatus, action string) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	vendorID := input.VendorID
	if vendorID == uuid.Nil {
		vendorID = input.ActorID
	}
	if input.ActorRole != enums.ActorRoleAdmin && vendorID != input.ActorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot act for another vendor")
	}

	var deliveredOrder *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadFulfillableOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rows, err := repo.AdvanceVendorItems(ctx, input.OrderID, vendorID, from, to, input.Courier, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance vendor items")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no eligible items for vendor").
				WithDetails(map[string]any{"expected_status": from})
		}

		delivered, err := s.recomputeOrderStatus(ctx, repo, order, now)
		if err != nil {
			return err
		}
		deliveredOrder = delivered
		return nil
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     action,
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "order",
		EntityID:   input.OrderID,
		Detail:     map[string]any{"vendor_id": vendorID, "to": to},
	})
	s.notifyDelivered(ctx, deliveredOrder)
	return nil
}

// orderAction is the order-wide aggregate: it succeeds only when every item
// has already reached the prerequisite stage, then advances the items still
// sitting at that stage. It refuses multi-vendor orders so a single vendor
// can never move another vendor's items.
func (s *service) orderAction(ctx context.Context, input OrderActionInput, prereq, to enums.ItemFulfillmentStatus, action string) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var deliveredOrder *models.Order
	var vendorID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadFulfillableOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if len(orders.VendorIDs(order.Items)) > 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order-level actions require a single-vendor order")
		}
		if len(order.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no items")
		}
		vendorID = order.Items[0].VendorID
		if input.ActorRole != enums.ActorRoleAdmin && vendorID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to vendor")
		}

		blocking := 0
		for _, item := range order.Items {
			if !item.FulfillmentStatus.AtLeast(prereq) {
				blocking++
			}
		}
		if blocking > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%d of %d items have not reached %s", blocking, len(order.Items), prereq)).
				WithDetails(map[string]any{"blocking_items": blocking, "required_status": prereq})
		}

		now := time.Now().UTC()
		if to != prereq {
			if _, err := repo.AdvanceVendorItems(ctx, input.OrderID, vendorID, prereq, to, input.Courier, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order items")
			}
		}

		delivered, err := s.recomputeOrderStatus(ctx, repo, order, now)
		if err != nil {
			return err
		}
		deliveredOrder = delivered
		return nil
	})
	if err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     action,
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "order",
		EntityID:   input.OrderID,
		Detail:     map[string]any{"vendor_id": vendorID, "to": to},
	})
	s.notifyDelivered(ctx, deliveredOrder)
	return nil
}

// loadFulfillableOrder rejects pipeline moves on orders that are not paid or
// are already in a terminal/frozen state.
func (s *service) loadFulfillableOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	switch order.Status {
	case enums.OrderStatusCancelled, enums.OrderStatusCompleted, enums.OrderStatusDisputed:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s; fulfillment is frozen", order.Status))
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid")
	}
	return order, nil
}

// recomputeOrderStatus re-derives the order status from the item rows after a
// stage move. Returns the order when the move completed delivery so the
// caller can notify the buyer post-commit.
func (s *service) recomputeOrderStatus(ctx context.Context, repo Repository, order *models.Order, now time.Time) (*models.Order, error) {
	items, err := repo.FindOrderItems(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
	}

	derived := orders.DeriveStatus(items, order.PaymentStatus == enums.PaymentStatusPaid)
	if derived == order.Status {
		return nil, nil
	}

	updates := map[string]any{"status": derived}
	var delivered *models.Order
	if derived == enums.OrderStatusDelivered && order.DeliveredAt == nil {
		updates["delivered_at"] = now
		copied := *order
		copied.Status = derived
		copied.DeliveredAt = &now
		delivered = &copied
	}
	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return delivered, nil
}

func (s *service) notifyDelivered(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	s.notifier.Dispatch(ctx, notifications.NewMessage(order.BuyerID, enums.NotificationOrderDelivered,
		fmt.Sprintf("Order #%d was delivered", order.OrderNumber)))
}
