package eventbus

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ============================================================================
// 进程内事件扇出
// ============================================================================
//
// 【定位】这是单节点的发布/订阅原语，不是消息中间件：
//   - 至多一次、尽力而为：没有消息日志，不回放，订阅者缓冲满了直接丢
//   - 断线重连后客户端必须走查询接口补齐当前状态，不能指望补发事件
//   - 进程重启后订阅关系全部丢失
// 多实例部署时需要换成共享 broker，这里不做。
//
// 【顺序约定】调用方（service 层）保证先落库提交、后发布事件，
// 同一订单的事件按提交顺序发布，订阅者不会看到库里还不存在的状态。
//
// 主题按三类隔离：customer:{id} / stall:{id} / table:{hawkerId}:{number}
// 加入主题只是声明"我关心这个"，身份校验在上游完成，这里不做权限控制。
// ============================================================================

const (
	EventOrderCreated     = "order:created"
	EventOrderUpdated     = "order:updated"
	EventPaymentCompleted = "payment:completed"
	// EventNewOrder 是 order:created 面向摊主端的别名事件
	EventNewOrder = "new-order"
)

// 每个订阅通道的缓冲大小，写满即丢（至多一次语义）
const subscriberBuffer = 16

// Event 一条扇出事件，Payload 是当前订单（或支付）的完整表示，不是增量
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func CustomerTopic(customerID int64) string {
	return fmt.Sprintf("customer:%d", customerID)
}

func StallTopic(stallID int64) string {
	return fmt.Sprintf("stall:%d", stallID)
}

func TableTopic(hawkerID int64, tableNumber int) string {
	return fmt.Sprintf("table:%d:%d", hawkerID, tableNumber)
}

// Bus 主题注册表
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]chan Event // topic -> connID -> ch
}

func New() *Bus {
	return &Bus{
		topics: make(map[string]map[string]chan Event),
	}
}

// Subscription 一个连接的订阅，所有已加入主题的事件汇聚到同一个通道
type Subscription struct {
	ID     string
	C      chan Event
	bus    *Bus
	topics []string
}

// Subscribe 建立订阅并加入给定主题
// 连接ID 每次都是新生成的，同一客户端重连即新订阅、旧订阅随连接断开被移除（后join生效）
func (b *Bus) Subscribe(topics ...string) *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		C:      make(chan Event, subscriberBuffer),
		bus:    b,
		topics: topics,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		conns, ok := b.topics[topic]
		if !ok {
			conns = make(map[string]chan Event)
			b.topics[topic] = conns
		}
		conns[sub.ID] = sub.C
	}
	return sub
}

// Close 退出所有主题并关闭通道
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for _, topic := range s.topics {
		conns, ok := s.bus.topics[topic]
		if !ok {
			continue
		}
		delete(conns, s.ID)
		if len(conns) == 0 {
			delete(s.bus.topics, topic)
		}
	}
	close(s.C)
}

// Publish 把事件广播给主题下的所有订阅者
// 非阻塞发送：订阅者消费慢导致缓冲写满时直接丢弃，绝不拖慢发布方
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.topics[topic] {
		select {
		case ch <- ev:
		default:
			// 缓冲已满，丢弃
		}
	}
}
