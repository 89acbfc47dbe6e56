package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/port"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/repository"
	"github.com/mdnaeem95/hawkerhub-sub000/pkg/idgen"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation          = errors.New("请求参数不合法")
	ErrStallClosed         = errors.New("摊位已打烊")
	ErrMenuItemUnavailable = errors.New("菜品暂不可点")
	ErrForbidden           = errors.New("无权执行该操作")
	ErrInvalidTransition   = errors.New("订单状态不允许该变更")
	ErrOrderNoExhausted    = errors.New("订单号生成冲突次数超限")
)

type OrderService struct {
	orders   port.OrderRepository
	catalog  port.CatalogRepository
	bus      port.EventBus
	notifier port.Notifier
	cfg      *config.Config
}

func NewOrderService(orders port.OrderRepository, catalog port.CatalogRepository, bus port.EventBus, notifier port.Notifier, cfg *config.Config) *OrderService {
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		bus:      bus,
		notifier: notifier,
		cfg:      cfg,
	}
}

type CreateOrderItem struct {
	MenuItemID          int64
	Quantity            int
	SpecialInstructions string
}

type CreateOrderRequest struct {
	TableCode   string // 桌面二维码内容，用于定位 熟食中心+桌号
	StallID     int64
	CustomerID  *int64 // 可空，游客下单
	PaymentMode string
	Items       []CreateOrderItem
}

// CreateOrder 下单
//
// 【关键点】金额完整性：总价由服务端按目录价 × 数量计算，
// 客户端提交的任何金额字段一律不读，这是正确性要求不是优化。
//
// 订单+订单项一个事务落库；只有提交之后才扇出 order:created 和通知摊主，
// 通知失败记日志吞掉，绝不让下单失败。
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.Order, error) {
	if !model.IsValidPaymentMode(req.PaymentMode) {
		return nil, fmt.Errorf("%w: 不支持的支付方式 %s", ErrValidation, req.PaymentMode)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: 订单不能为空", ErrValidation)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: 数量必须大于0", ErrValidation)
		}
	}

	table, err := s.catalog.GetTableByQRCode(ctx, req.TableCode)
	if err != nil {
		return nil, err
	}

	stall, err := s.catalog.GetStall(ctx, req.StallID)
	if err != nil {
		return nil, err
	}
	if stall.HawkerID != table.HawkerID {
		// 扫的桌码和点的摊位不在同一熟食中心
		return nil, fmt.Errorf("餐桌不属于该摊位所在熟食中心: %w", repository.ErrTableNotFound)
	}
	if !stall.IsOpen {
		return nil, ErrStallClosed
	}

	// 逐项回查目录，锁定价格快照并累加总价
	totalAmount := decimal.Zero
	orderItems := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		menuItem, err := s.catalog.GetMenuItem(ctx, item.MenuItemID)
		if err != nil {
			return nil, err
		}
		if menuItem.StallID != req.StallID {
			return nil, fmt.Errorf("菜品不属于该摊位: %w", repository.ErrMenuItemNotFound)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemUnavailable, menuItem.Name)
		}

		quantity := decimal.NewFromInt(int64(item.Quantity))
		totalAmount = totalAmount.Add(menuItem.Price.Mul(quantity))

		orderItems = append(orderItems, model.OrderItem{
			MenuItemID:          menuItem.ID,
			Quantity:            item.Quantity,
			UnitPrice:           menuItem.Price,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	// 订单号撞唯一索引时换号重试，次数用尽报冲突
	var order *model.Order
	for i := 0; i < s.cfg.Business.OrderNoMaxRetries; i++ {
		order = &model.Order{
			OrderNo:       idgen.GenerateOrderNo(),
			TableID:       table.ID,
			StallID:       stall.ID,
			CustomerID:    req.CustomerID,
			Status:        model.OrderStatusPending,
			TotalAmount:   totalAmount,
			PaymentMode:   req.PaymentMode,
			PaymentStatus: model.PaymentStatusPending,
			Items:         orderItems,
		}

		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNo) {
			return nil, fmt.Errorf("创建订单失败: %w", err)
		}
		order = nil
	}
	if order == nil {
		return nil, ErrOrderNoExhausted
	}

	log.Printf("订单创建成功: orderNo=%s, stallID=%d, total=%s", order.OrderNo, order.StallID, order.TotalAmount)

	// 提交之后才扇出事件；new-order 是 order:created 面向摊主端的别名
	s.publishOrderEvent(ctx, eventbus.EventOrderCreated, order, table)
	s.bus.Publish(eventbus.StallTopic(order.StallID), eventbus.Event{
		Type:    eventbus.EventNewOrder,
		Payload: order,
	})

	if err := s.notifier.NotifyStall(ctx, order); err != nil {
		log.Printf("通知摊主失败（忽略）: orderNo=%s, err=%v", order.OrderNo, err)
	}

	return order, nil
}

// Transition 订单状态变更
//
// 变更条件带上读取时的当前状态做 compare-and-set：
// 并发的 摊主接单 和 顾客取消 只有先提交方生效，落败方拿到 ErrInvalidTransition，
// 调用方应刷新订单后再决定是否重试。
func (s *OrderService) Transition(ctx context.Context, orderNo, targetStatus string, actor model.Actor) (*model.Order, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return nil, err
	}

	if !model.CanTransitionTo(order.Status, targetStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, targetStatus)
	}

	if err := s.authorizeTransition(ctx, order, targetStatus, actor); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, orderNo, order.Status, targetStatus); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			// compare-and-set 落败，状态已被并发修改
			return nil, fmt.Errorf("%w: 订单状态已变化，请刷新", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("更新订单状态失败: %w", err)
	}

	order.Status = targetStatus

	log.Printf("订单状态变更: orderNo=%s, status=%s, actor=%d", orderNo, targetStatus, actor.UserID)

	s.publishOrderEvent(ctx, eventbus.EventOrderUpdated, order, nil)

	if err := s.notifier.NotifyCustomer(ctx, order); err != nil {
		log.Printf("通知顾客失败（忽略）: orderNo=%s, err=%v", orderNo, err)
	}

	return order, nil
}

// authorizeTransition 状态变更授权
//
//	PENDING   -> PREPARING  摊主
//	PENDING   -> CANCELLED  摊主 或 下单顾客
//	PREPARING -> READY      摊主
//	PREPARING -> CANCELLED  摊主
//	READY     -> COMPLETED  摊主 或 下单顾客（自取确认）
func (s *OrderService) authorizeTransition(ctx context.Context, order *model.Order, targetStatus string, actor model.Actor) error {
	if actor.IsVendor() {
		stall, err := s.catalog.GetStall(ctx, order.StallID)
		if err != nil {
			return err
		}
		if stall.OwnerID != actor.UserID {
			return fmt.Errorf("%w: 不是该摊位的摊主", ErrForbidden)
		}
		return nil
	}

	if actor.IsCustomer() {
		customerAllowed := (order.Status == model.OrderStatusPending && targetStatus == model.OrderStatusCancelled) ||
			(order.Status == model.OrderStatusReady && targetStatus == model.OrderStatusCompleted)
		if !customerAllowed {
			return fmt.Errorf("%w: 顾客只能取消待接订单或确认取餐", ErrForbidden)
		}
		if order.CustomerID == nil || *order.CustomerID != actor.UserID {
			return fmt.Errorf("%w: 不是该订单的下单顾客", ErrForbidden)
		}
		return nil
	}

	return ErrForbidden
}

func (s *OrderService) GetOrder(ctx context.Context, orderNo string) (*model.Order, error) {
	return s.orders.GetByOrderNo(ctx, orderNo)
}

func (s *OrderService) ListStallOrders(ctx context.Context, stallID int64, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orders.ListByStall(ctx, stallID, page, pageSize)
}

func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID int64, page, pageSize int) ([]*model.Order, int64, error) {
	return s.orders.ListByCustomer(ctx, customerID, page, pageSize)
}

// publishOrderEvent 同一逻辑事件广播到 顾客/摊位/餐桌 三类主题
// table 为 nil 时按订单回查；查不到就跳过餐桌主题，不影响另外两路
func (s *OrderService) publishOrderEvent(ctx context.Context, eventType string, order *model.Order, table *model.Table) {
	ev := eventbus.Event{Type: eventType, Payload: order}

	if order.CustomerID != nil {
		s.bus.Publish(eventbus.CustomerTopic(*order.CustomerID), ev)
	}
	s.bus.Publish(eventbus.StallTopic(order.StallID), ev)

	if table == nil {
		var err error
		table, err = s.catalog.GetTable(ctx, order.TableID)
		if err != nil {
			log.Printf("查询餐桌失败，跳过餐桌主题: orderNo=%s, err=%v", order.OrderNo, err)
			return
		}
	}
	s.bus.Publish(eventbus.TableTopic(table.HawkerID, table.Number), ev)
}
