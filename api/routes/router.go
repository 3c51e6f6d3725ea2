package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luisareyes-dev/tianguis-backend/api/controllers"
	webhookcontrollers "github.com/luisareyes-dev/tianguis-backend/api/controllers/webhooks"
	"github.com/luisareyes-dev/tianguis-backend/api/middleware"
	"github.com/luisareyes-dev/tianguis-backend/internal/commission"
	"github.com/luisareyes-dev/tianguis-backend/internal/disputes"
	"github.com/luisareyes-dev/tianguis-backend/internal/fulfillment"
	"github.com/luisareyes-dev/tianguis-backend/internal/notifications"
	"github.com/luisareyes-dev/tianguis-backend/internal/orders"
	"github.com/luisareyes-dev/tianguis-backend/internal/refunds"
	paymentwebhook "github.com/luisareyes-dev/tianguis-backend/internal/webhooks/payments"
	"github.com/luisareyes-dev/tianguis-backend/pkg/config"
	"github.com/luisareyes-dev/tianguis-backend/pkg/db"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
	"github.com/luisareyes-dev/tianguis-backend/pkg/metrics"
	"github.com/luisareyes-dev/tianguis-backend/pkg/redis"
	"github.com/luisareyes-dev/tianguis-backend/pkg/square"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	ordersSvc orders.Service,
	fulfillmentSvc fulfillment.Service,
	disputesSvc disputes.Service,
	refundsSvc refunds.Service,
	commissionSvc commission.Service,
	notificationsSvc notifications.Service,
	squareClient *square.Client,
	paymentWebhookSvc *paymentwebhook.Service,
	paymentWebhookGuard *paymentwebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg, httpMetrics),
	)

	disputePolicy := middleware.NewRateLimitPolicy(
		"dispute_open",
		cfg.RateLimit.DisputeWindow,
		cfg.RateLimit.DisputeLimit,
	)
	disputeMsgPolicy := middleware.NewRateLimitPolicy(
		"dispute_message",
		cfg.RateLimit.DisputeMsgWindow,
		cfg.RateLimit.DisputeMsgLimit,
	)

	healthDeps := map[string]controllers.Pinger{
		"database": dbP,
		"redis":    redisClient,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.PaymentWebhook(paymentWebhookSvc, squareClient, paymentWebhookGuard, logg))
	})

	r.Route("/api/v1/vendor", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleVendor, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/items/{itemId}/pack", controllers.AdvanceItem(fulfillmentSvc, enums.ItemFulfillmentStatusPacked, logg))
		r.Post("/items/{itemId}/hand-to-courier", controllers.AdvanceItem(fulfillmentSvc, enums.ItemFulfillmentStatusHandedToCourier, logg))
		r.Post("/items/{itemId}/deliver", controllers.AdvanceItem(fulfillmentSvc, enums.ItemFulfillmentStatusDelivered, logg))

		r.Post("/orders/{orderId}/ready-for-pickup", controllers.VendorOrderAction(fulfillmentSvc.VendorReadyForPickup, logg))
		r.Post("/orders/{orderId}/book-courier", controllers.VendorOrderAction(fulfillmentSvc.VendorBookCourier, logg))
		r.Post("/orders/{orderId}/deliver", controllers.VendorOrderAction(fulfillmentSvc.VendorMarkDelivered, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersSvc, logg))
			r.Get("/", controllers.ListOrders(ordersSvc, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersSvc, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.With(middleware.RateLimit(disputePolicy, redisClient, logg)).
				Post("/", controllers.OpenDispute(disputesSvc, logg))
			r.Get("/", controllers.ListDisputes(disputesSvc, logg))
			r.Get("/{disputeId}", controllers.GetDispute(disputesSvc, logg))
			r.With(middleware.RateLimit(disputeMsgPolicy, redisClient, logg)).
				Post("/{disputeId}/messages", controllers.AddDisputeMessage(disputesSvc, logg))
			r.Post("/{disputeId}/escalate", controllers.EscalateDispute(disputesSvc, logg))
			r.Post("/{disputeId}/close", controllers.CloseDispute(disputesSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsSvc, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsSvc, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/mark-paid", controllers.AdminMarkPaid(ordersSvc, logg))
			r.Post("/cancel", controllers.CancelOrder(ordersSvc, logg))
			r.Post("/complete", controllers.CompleteOrder(ordersSvc, logg))
			r.Post("/ready-for-pickup", controllers.OrderAction(fulfillmentSvc.OrderReadyForPickup, logg))
			r.Post("/book-courier", controllers.OrderAction(fulfillmentSvc.OrderBookCourier, logg))
			r.Post("/deliver", controllers.OrderAction(fulfillmentSvc.OrderMarkDelivered, logg))
		})

		r.Route("/commission-rates", func(r chi.Router) {
			r.Post("/", controllers.SetCommissionRate(commissionSvc, logg))
			r.Get("/", controllers.ListCommissionRates(commissionSvc, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", controllers.ListDisputes(disputesSvc, logg))
			r.Get("/{disputeId}", controllers.GetDispute(disputesSvc, logg))
			r.Post("/{disputeId}/assign", controllers.AssignDispute(disputesSvc, logg))
			r.Post("/{disputeId}/status", controllers.UpdateDisputeStatus(disputesSvc, logg))
			r.Post("/{disputeId}/priority", controllers.UpdateDisputePriority(disputesSvc, logg))
			r.Post("/{disputeId}/resolve", controllers.ResolveDispute(disputesSvc, logg))
			r.Post("/{disputeId}/refund", controllers.ProcessRefund(refundsSvc, logg))
			r.Post("/{disputeId}/refund/confirm", controllers.ConfirmRefund(refundsSvc, logg))
		})
	})

	return r
}
