package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/repository"
)

// OutboxNotifier 推送通知投递
//
// 通知先写 outbox 表，由后台任务异步投递到 Kafka，推送服务消费后触达设备。
// 写 outbox 失败只会被调用方记日志吞掉——通知是尽力而为的旁路，
// 永远不构成订单/支付操作的失败。
type OutboxNotifier struct {
	outboxRepo *repository.OutboxRepository
	topics     config.KafkaTopicConfig
}

func NewOutboxNotifier(outboxRepo *repository.OutboxRepository, topics config.KafkaTopicConfig) *OutboxNotifier {
	return &OutboxNotifier{
		outboxRepo: outboxRepo,
		topics:     topics,
	}
}

// NotifyStall 通知摊主有新订单
func (n *OutboxNotifier) NotifyStall(ctx context.Context, order *model.Order) error {
	payload := map[string]interface{}{
		"kind":         "new_order",
		"stall_id":     order.StallID,
		"order_no":     order.OrderNo,
		"table_id":     order.TableID,
		"total_amount": order.TotalAmount,
		"created_at":   order.CreatedAt.Format(time.RFC3339),
	}
	return n.enqueue(ctx, n.topics.StallNotify, order.OrderNo, payload)
}

// NotifyCustomer 通知顾客订单进展
// 游客订单没有顾客ID，无处可推，直接跳过
func (n *OutboxNotifier) NotifyCustomer(ctx context.Context, order *model.Order) error {
	if order.CustomerID == nil {
		return nil
	}
	payload := map[string]interface{}{
		"kind":           "order_progress",
		"customer_id":    *order.CustomerID,
		"order_no":       order.OrderNo,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	}
	return n.enqueue(ctx, n.topics.CustomerNotify, order.OrderNo, payload)
}

func (n *OutboxNotifier) enqueue(ctx context.Context, topic, key string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := &model.OutboxMessage{
		MessageKey: key,
		Topic:      topic,
		Payload:    string(data),
		Status:     model.OutboxStatusPending,
	}
	return n.outboxRepo.Create(ctx, msg)
}
