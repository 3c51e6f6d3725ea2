package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/internal/audit"
	"github.com/luisareyes-dev/tianguis-backend/internal/commission"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/pkg/config"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	pkgerrors "github.com/luisareyes-dev/tianguis-backend/pkg/errors"
	"github.com/luisareyes-dev/tianguis-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rateResolver interface {
	ResolveRate(ctx context.Context, vendorID uuid.UUID, category string) (*commission.ResolvedRate, error)
}

// Service defines the order ledger operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Complete(ctx context.Context, input CompleteInput) (*models.Order, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters Filters) (*List, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) (*List, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	cfg       config.DisputesConfig
	rates     rateResolver
	inventory InventoryAdjuster
	notifier  notifications.Dispatcher
	auditor   audit.Recorder
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, cfg config.DisputesConfig, rates rateResolver, inventory InventoryAdjuster, notifier notifications.Dispatcher, auditor audit.Recorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate resolver required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		cfg:       cfg,
		rates:     rates,
		inventory: inventory,
		notifier:  notifier,
		auditor:   auditor,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if input.DeliveryFeeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee cannot be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	subtotal := 0
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, line := range input.Items {
		if line.ProductID == uuid.Nil || line.VendorID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d missing product or vendor", i))
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d quantity must be positive", i))
		}
		if line.UnitPriceCents < 0 || line.DiscountCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d has negative pricing", i))
		}
		finalPrice := line.UnitPriceCents*line.Quantity - line.DiscountCents
		if finalPrice < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d discount exceeds line total", i))
		}

		resolved, err := s.rates.ResolveRate(ctx, line.VendorID, line.Category)
		if err != nil {
			return nil, err
		}
		commissionCents, earningsCents := commission.Compute(finalPrice, resolved.Rate)

		subtotal += finalPrice
		items = append(items, models.OrderItem{
			ProductID:           line.ProductID,
			VendorID:            line.VendorID,
			ProductName:         strings.TrimSpace(line.ProductName),
			Category:            strings.TrimSpace(line.Category),
			Quantity:            line.Quantity,
			UnitPriceCents:      line.UnitPriceCents,
			FinalPriceCents:     finalPrice,
			CommissionRate:      resolved.Rate,
			CommissionCents:     commissionCents,
			VendorEarningsCents: earningsCents,
			FulfillmentStatus:   enums.ItemFulfillmentStatusPending,
		})
	}

	order := &models.Order{
		BuyerID:          input.BuyerID,
		Status:           enums.OrderStatusPendingPayment,
		PaymentStatus:    enums.PaymentStatusPending,
		Currency:         currency,
		SubtotalCents:    subtotal,
		DeliveryFeeCents: input.DeliveryFeeCents,
		TotalCents:       subtotal + input.DeliveryFeeCents,
		ShippingAddress:  input.ShippingAddress,
		Notes:            input.Notes,
		Items:            items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		number, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}
		order.OrderNumber = number

		for _, line := range input.Items {
			if err := s.inventory.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reserve stock")
			}
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     "order.created",
		ActorID:    input.BuyerID,
		ActorRole:  enums.ActorRoleBuyer,
		EntityType: "order",
		EntityID:   order.ID,
		Detail:     map[string]any{"order_number": order.OrderNumber, "total_cents": order.TotalCents},
	})
	return order, nil
}

func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.PaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		rows, err := repo.UpdateOrderWhereStatus(ctx, loaded.ID,
			[]string{string(enums.OrderStatusPendingPayment)},
			map[string]any{
				"status":         enums.OrderStatusConfirmed,
				"payment_status": enums.PaymentStatusPaid,
				"payment_id":     input.PaymentID,
				"paid_at":        now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
		}

		loaded.Status = enums.OrderStatusConfirmed
		loaded.PaymentStatus = enums.PaymentStatusPaid
		loaded.PaymentID = &input.PaymentID
		loaded.PaidAt = &now
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     "order.paid",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "order",
		EntityID:   order.ID,
		Detail:     map[string]any{"payment_id": input.PaymentID},
	})
	s.notifier.Dispatch(ctx, notifications.NewMessage(order.BuyerID, enums.NotificationOrderConfirmed,
		fmt.Sprintf("Order #%d is confirmed", order.OrderNumber)))
	return order, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can cancel orders")
	}

	var order *models.Order
	alreadyCancelled := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if loaded.Status == enums.OrderStatusCancelled {
			// Retried cancellations succeed without touching inventory again.
			alreadyCancelled = true
			order = loaded
			return nil
		}
		if !loaded.Status.IsPreDelivery() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		now := time.Now().UTC()
		preDelivery := []string{
			string(enums.OrderStatusPendingPayment),
			string(enums.OrderStatusConfirmed),
			string(enums.OrderStatusPreparing),
			string(enums.OrderStatusReadyForPickup),
			string(enums.OrderStatusOutForDelivery),
		}
		rows, err := repo.UpdateOrderWhereStatus(ctx, loaded.ID, preDelivery, map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		for _, item := range loaded.Items {
			if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
			}
		}

		loaded.Status = enums.OrderStatusCancelled
		loaded.CancelledAt = &now
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyCancelled {
		return order, nil
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     "order.cancelled",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "order",
		EntityID:   order.ID,
		Detail:     map[string]any{"reason": input.Reason},
	})
	s.notifier.Dispatch(ctx, notifications.NewMessage(order.BuyerID, enums.NotificationOrderCancelled,
		fmt.Sprintf("Order #%d was cancelled", order.OrderNumber)))
	return order, nil
}

func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	if input.ActorRole != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can complete orders")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if loaded.DeliveredAt == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be completed")
		}
		if elapsed := now.Sub(*loaded.DeliveredAt); elapsed < s.cfg.Window {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute window is still open")
		}

		rows, err := repo.UpdateOrderWhereStatus(ctx, loaded.ID,
			[]string{string(enums.OrderStatusDelivered)},
			map[string]any{
				"status":       enums.OrderStatusCompleted,
				"completed_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be completed")
		}

		loaded.Status = enums.OrderStatusCompleted
		loaded.CompletedAt = &now
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Entry{
		Category:   enums.AuditCategoryOrders,
		Action:     "order.completed",
		ActorID:    input.ActorID,
		ActorRole:  input.ActorRole,
		EntityType: "order",
		EntityID:   order.ID,
	})
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}

	switch role {
	case enums.ActorRoleAdmin:
		return order, nil
	case enums.ActorRoleBuyer:
		if order.BuyerID != actorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
		}
		return order, nil
	case enums.ActorRoleVendor:
		// Vendors only see their own slice of the order.
		filtered := order.Items[:0:0]
		for _, item := range order.Items {
			if item.VendorID == actorID {
				filtered = append(filtered, item)
			}
		}
		if len(filtered) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order has no items for vendor")
		}
		order.Items = filtered
		return order, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
}

func (s *service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params, filters Filters) (*List, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	list, err := s.repo.ListBuyerOrders(ctx, buyerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}
	return list, nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters Filters) (*List, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	list, err := s.repo.ListVendorOrders(ctx, vendorID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return list, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
