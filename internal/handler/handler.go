package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/infrastructure/cache"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/infrastructure/lock"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/notifier"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/repository"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/service"
	"github.com/mdnaeem95/hawkerhub-sub000/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	orderService   *service.OrderService
	paymentService *service.PaymentService
	bus            *eventbus.Bus
	cfg            *config.Config
}

// NewHandler 创建处理器实例
// 仓储、缓存、锁、通知器都在这里组装一次，然后注入 service
func NewHandler(db *gorm.DB, rdb *redis.Client, bus *eventbus.Bus, cfg *config.Config) *Handler {
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	catalog := cache.NewCachedCatalog(
		repository.NewCatalogRepository(db),
		rdb,
		time.Duration(cfg.Business.MenuCacheSeconds)*time.Second,
	)

	notify := notifier.NewOutboxNotifier(outboxRepo, cfg.Kafka.Topic)
	locker := lock.NewRedisLocker(rdb)

	return &Handler{
		orderService:   service.NewOrderService(orderRepo, catalog, bus, notify, cfg),
		paymentService: service.NewPaymentService(orderRepo, catalog, paymentRepo, bus, notify, locker, cfg),
		bus:            bus,
		cfg:            cfg,
	}
}

// respondError 把 service / repository 的哨兵错误映射为业务码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		response.BusinessError(c, response.CodeOrderNotFound, err.Error())
	case errors.Is(err, repository.ErrTableNotFound):
		response.BusinessError(c, response.CodeTableNotFound, err.Error())
	case errors.Is(err, repository.ErrStallNotFound):
		response.BusinessError(c, response.CodeStallNotFound, err.Error())
	case errors.Is(err, repository.ErrMenuItemNotFound):
		response.BusinessError(c, response.CodeMenuItemNotFound, err.Error())
	case errors.Is(err, service.ErrMenuItemUnavailable), errors.Is(err, service.ErrStallClosed):
		response.BusinessError(c, response.CodeItemUnavailable, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.BusinessError(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrOrderNoExhausted),
		errors.Is(err, repository.ErrOrderAlreadyPaid),
		errors.Is(err, repository.ErrDuplicatePayment):
		response.BusinessError(c, response.CodeConflict, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 订单相关接口
// ============================================================

// CreateOrderItemBody 订单项
type CreateOrderItemBody struct {
	MenuItemID          int64  `json:"menu_item_id" binding:"required"`
	Quantity            int    `json:"quantity" binding:"required,gt=0"`
	SpecialInstructions string `json:"special_instructions"`
}

// CreateOrderBody 创建订单请求
// 注意：没有金额字段，总价一律由服务端按目录价计算
type CreateOrderBody struct {
	TableCode   string                `json:"table_code" binding:"required"`
	StallID     int64                 `json:"stall_id" binding:"required"`
	PaymentMode string                `json:"payment_mode" binding:"required"`
	Items       []CreateOrderItemBody `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder 创建订单
// POST /api/v1/order/create
func (h *Handler) CreateOrder(c *gin.Context) {
	var body CreateOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	req := &service.CreateOrderRequest{
		TableCode:   body.TableCode,
		StallID:     body.StallID,
		PaymentMode: body.PaymentMode,
	}
	// 已登录顾客挂到订单上，游客订单 customer 为空
	if actor, ok := actorFrom(c); ok && actor.IsCustomer() {
		req.CustomerID = &actor.UserID
	}
	for _, item := range body.Items {
		req.Items = append(req.Items, service.CreateOrderItem{
			MenuItemID:          item.MenuItemID,
			Quantity:            item.Quantity,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"id":           order.ID,
		"order_no":     order.OrderNo,
		"status":       order.Status,
		"total_amount": order.TotalAmount,
	})
}

// GetOrder 查询订单详情（断线重连后的状态补齐入口）
// GET /api/v1/order/detail?order_no=xxx
func (h *Handler) GetOrder(c *gin.Context) {
	orderNo := c.Query("order_no")
	if orderNo == "" {
		response.ParamError(c, "order_no 参数不能为空")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderNo)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, order)
}

// ListOrders 查询订单列表
// GET /api/v1/order/list?stall_id=xxx&page=1&page_size=10
// GET /api/v1/order/list?customer_id=xxx&page=1&page_size=10
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := pagination(c)

	ctx := c.Request.Context()
	if stallID, ok := queryInt64(c, "stall_id"); ok {
		orders, total, err := h.orderService.ListStallOrders(ctx, stallID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, gin.H{"list": orders, "total": total, "page": page, "page_size": pageSize})
		return
	}
	if customerID, ok := queryInt64(c, "customer_id"); ok {
		orders, total, err := h.orderService.ListCustomerOrders(ctx, customerID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		response.Success(c, gin.H{"list": orders, "total": total, "page": page, "page_size": pageSize})
		return
	}

	response.ParamError(c, "需要 stall_id 或 customer_id 参数")
}

// UpdateStatusBody 状态变更请求
type UpdateStatusBody struct {
	OrderNo string `json:"order_no" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// UpdateOrderStatus 订单状态变更
// PATCH /api/v1/order/status
// 操作者身份来自已认证的请求头，越权和非法变更分别报 403 / 状态码
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var body UpdateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		response.Forbidden(c, "缺少操作者身份")
		return
	}

	order, err := h.orderService.Transition(c.Request.Context(), body.OrderNo, body.Status, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, order)
}

// ============================================================
// 支付相关接口
// ============================================================

// PaymentQR 获取订单收款码载荷
// GET /api/v1/pay/qr?order_no=xxx
func (h *Handler) PaymentQR(c *gin.Context) {
	orderNo := c.Query("order_no")
	if orderNo == "" {
		response.ParamError(c, "order_no 参数不能为空")
		return
	}

	payload, err := h.paymentService.PaymentQR(c.Request.Context(), orderNo)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order_no": orderNo,
		"payload":  payload,
	})
}

// ConfirmCashBody 现金收款确认请求
type ConfirmCashBody struct {
	OrderNo       string `json:"order_no" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

// ConfirmCashPayment 摊主确认现金收款
// POST /api/v1/pay/cash
func (h *Handler) ConfirmCashPayment(c *gin.Context) {
	var body ConfirmCashBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	actor, ok := actorFrom(c)
	if !ok {
		response.Forbidden(c, "缺少操作者身份")
		return
	}

	transactionID := body.TransactionID
	if transactionID == "" {
		// 现金没有渠道交易号，按订单派生一个固定值保证重复确认幂等
		transactionID = fmt.Sprintf("CASH-%s", body.OrderNo)
	}

	payment, err := h.paymentService.ConfirmPayment(c.Request.Context(), &service.ConfirmPaymentRequest{
		OrderNo:       body.OrderNo,
		TransactionID: transactionID,
		Status:        model.PaymentStatusCompleted,
		Actor:         &actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, payment)
}
