package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/port"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/repository"
	"github.com/mdnaeem95/hawkerhub-sub000/pkg/sgqr"
)

// 确认锁的有效期，覆盖一次确认事务绰绰有余
const confirmLockTTL = 30 * time.Second

type PaymentService struct {
	orders   port.OrderRepository
	catalog  port.CatalogRepository
	payments port.PaymentStore
	bus      port.EventBus
	notifier port.Notifier
	locker   port.Locker
	cfg      *config.Config
}

func NewPaymentService(orders port.OrderRepository, catalog port.CatalogRepository, payments port.PaymentStore,
	bus port.EventBus, notifier port.Notifier, locker port.Locker, cfg *config.Config) *PaymentService {
	return &PaymentService{
		orders:   orders,
		catalog:  catalog,
		payments: payments,
		bus:      bus,
		notifier: notifier,
		locker:   locker,
		cfg:      cfg,
	}
}

// PaymentQR 生成订单的收款码载荷
// 纯展示层的图片渲染不在这里做，这里只负责可被扫码端解析的字符串
func (s *PaymentService) PaymentQR(ctx context.Context, orderNo string) (string, error) {
	order, err := s.orders.GetByOrderNo(ctx, orderNo)
	if err != nil {
		return "", err
	}
	if order.PaymentMode == model.PaymentModeCash {
		return "", fmt.Errorf("%w: 现金订单没有收款码", ErrValidation)
	}

	stall, err := s.catalog.GetStall(ctx, order.StallID)
	if err != nil {
		return "", err
	}

	return sgqr.BuildPaymentPayload(sgqr.Request{
		Amount:       order.TotalAmount,
		MerchantName: stall.Name,
		MerchantUEN:  s.cfg.Payment.MerchantUEN,
		BillNumber:   order.OrderNo,
	}), nil
}

// ConfirmPaymentRequest 支付确认输入
// Actor 为 nil 表示已通过签名校验的渠道回调；非 nil 表示摊主现金收款
type ConfirmPaymentRequest struct {
	OrderNo       string
	TransactionID string
	Status        string // COMPLETED / FAILED
	Metadata      string
	Actor         *model.Actor
}

// ConfirmPayment 记录支付确认
//
// 【关键点】幂等：以 (orderID, transactionID) 为准，
// 同一笔交易重复确认直接返回已有记录，不产生任何副作用。
// 三层防护：锁前预查（快路径）-> 分布式锁内复查 -> 数据库唯一索引（最终防线）。
//
// 现金单只有本摊摊主能确认；电子支付只接受渠道回调（签名校验在 handler 完成）。
func (s *PaymentService) ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*model.Payment, error) {
	if req.Status != model.PaymentStatusCompleted && req.Status != model.PaymentStatusFailed {
		return nil, fmt.Errorf("%w: 未知的支付状态 %s", ErrValidation, req.Status)
	}

	order, err := s.orders.GetByOrderNo(ctx, req.OrderNo)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeConfirm(ctx, order, req.Actor); err != nil {
		return nil, err
	}

	// 锁前预查，重复回调的快路径
	existing, err := s.payments.GetByOrderAndTransaction(ctx, order.ID, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}
	if existing != nil && existing.Status == model.PaymentStatusCompleted {
		return existing, nil
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("pay:confirm:order:%s", req.OrderNo), confirmLockTTL)
	if err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer release()

	// 拿到锁后复查，串行化后的并发回调在这里命中
	existing, err = s.payments.GetByOrderAndTransaction(ctx, order.ID, req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}
	if existing != nil && existing.Status == model.PaymentStatusCompleted {
		return existing, nil
	}

	if req.Status == model.PaymentStatusFailed {
		return s.recordFailure(ctx, order, req)
	}

	now := time.Now()
	payment := &model.Payment{
		OrderID:       order.ID,
		TransactionID: req.TransactionID,
		Status:        model.PaymentStatusCompleted,
		Amount:        order.TotalAmount,
		CompletedAt:   &now,
		Metadata:      req.Metadata,
	}

	err = s.payments.Confirm(ctx, payment, order.OrderNo)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// 唯一索引兜住了锁外漏网的并发，读已有记录返回
			existing, err := s.payments.GetByOrderAndTransaction(ctx, order.ID, req.TransactionID)
			if err != nil {
				return nil, err
			}
			return existing, nil
		}
		return nil, err
	}

	order.PaymentStatus = model.PaymentStatusCompleted
	order.PaidAt = &now

	log.Printf("支付确认成功: orderNo=%s, transactionID=%s, amount=%s", order.OrderNo, req.TransactionID, payment.Amount)

	// 提交之后才发事件：只发给顾客和摊位两类主题
	ev := eventbus.Event{
		Type: eventbus.EventPaymentCompleted,
		Payload: PaymentCompletedEvent{
			Order:   order,
			Payment: payment,
		},
	}
	if order.CustomerID != nil {
		s.bus.Publish(eventbus.CustomerTopic(*order.CustomerID), ev)
	}
	s.bus.Publish(eventbus.StallTopic(order.StallID), ev)

	if err := s.notifier.NotifyCustomer(ctx, order); err != nil {
		log.Printf("通知顾客失败（忽略）: orderNo=%s, err=%v", order.OrderNo, err)
	}

	return payment, nil
}

// PaymentCompletedEvent payment:completed 事件载荷
type PaymentCompletedEvent struct {
	Order   *model.Order   `json:"order"`
	Payment *model.Payment `json:"payment"`
}

func (s *PaymentService) recordFailure(ctx context.Context, order *model.Order, req *ConfirmPaymentRequest) (*model.Payment, error) {
	payment := &model.Payment{
		OrderID:       order.ID,
		TransactionID: req.TransactionID,
		Status:        model.PaymentStatusFailed,
		Amount:        order.TotalAmount,
		Metadata:      req.Metadata,
	}

	if err := s.payments.RecordFailure(ctx, payment, order.OrderNo); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			return s.payments.GetByOrderAndTransaction(ctx, order.ID, req.TransactionID)
		}
		return nil, err
	}

	log.Printf("支付失败信号已记录: orderNo=%s, transactionID=%s", order.OrderNo, req.TransactionID)
	return payment, nil
}

// authorizeConfirm 支付确认授权
// 现金单：必须是本摊摊主；电子支付：只接受渠道回调（Actor 为 nil）
func (s *PaymentService) authorizeConfirm(ctx context.Context, order *model.Order, actor *model.Actor) error {
	if order.PaymentMode == model.PaymentModeCash {
		if actor == nil || !actor.IsVendor() {
			return fmt.Errorf("%w: 现金收款只能由摊主确认", ErrForbidden)
		}
		stall, err := s.catalog.GetStall(ctx, order.StallID)
		if err != nil {
			return err
		}
		if stall.OwnerID != actor.UserID {
			return fmt.Errorf("%w: 不是该摊位的摊主", ErrForbidden)
		}
		return nil
	}

	if actor != nil {
		return fmt.Errorf("%w: 电子支付只接受渠道回调确认", ErrForbidden)
	}
	return nil
}
