package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mdnaeem95/hawkerhub-sub000/internal/config"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/eventbus"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/model"
	"github.com/mdnaeem95/hawkerhub-sub000/internal/repository"

	"github.com/shopspring/decimal"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// 手写内存 mock，替换 port 下的各个接口
// 只实现测试需要的行为，不追求仿真存储

// ----------------------------------------------------------------------------
// 订单存储 mock
// ----------------------------------------------------------------------------

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order // orderNo -> order
	nextID int64

	dupRemaining int   // 前 N 次 Create 返回订单号冲突
	createErr    error // 非冲突的 Create 失败注入
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*model.Order)}
}

func (m *mockOrderRepo) Create(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dupRemaining > 0 {
		m.dupRemaining--
		return repository.ErrDuplicateOrderNo
	}
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.orders[order.OrderNo]; exists {
		return repository.ErrDuplicateOrderNo
	}

	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = time.Now()
	m.orders[order.OrderNo] = order
	return nil
}

func (m *mockOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderNo]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	// 返回副本，模拟每次读取都是一次独立查询
	cp := *order
	return &cp, nil
}

// UpdateStatus 和真实存储一样按当前状态做 compare-and-set
func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderNo string, fromStatus, toStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderNo]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status != fromStatus {
		return repository.ErrStaleStatus
	}
	order.Status = toStatus
	return nil
}

func (m *mockOrderRepo) ListByStall(ctx context.Context, stallID int64, page, pageSize int) ([]*model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*model.Order
	for _, order := range m.orders {
		if order.StallID == stallID {
			cp := *order
			result = append(result, &cp)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockOrderRepo) ListByCustomer(ctx context.Context, customerID int64, page, pageSize int) ([]*model.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*model.Order
	for _, order := range m.orders {
		if order.CustomerID != nil && *order.CustomerID == customerID {
			cp := *order
			result = append(result, &cp)
		}
	}
	return result, int64(len(result)), nil
}

// status 直接读存储里的当前状态（绕过副本）
func (m *mockOrderRepo) status(orderNo string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderNo].Status
}

// ----------------------------------------------------------------------------
// 目录 mock
// ----------------------------------------------------------------------------

type mockCatalog struct {
	tablesByQR map[string]*model.Table
	tablesByID map[int64]*model.Table
	stalls     map[int64]*model.Stall
	items      map[int64]*model.MenuItem
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		tablesByQR: make(map[string]*model.Table),
		tablesByID: make(map[int64]*model.Table),
		stalls:     make(map[int64]*model.Stall),
		items:      make(map[int64]*model.MenuItem),
	}
}

func (m *mockCatalog) addTable(t *model.Table) {
	m.tablesByQR[t.QRCode] = t
	m.tablesByID[t.ID] = t
}

func (m *mockCatalog) GetTableByQRCode(ctx context.Context, qrCode string) (*model.Table, error) {
	t, ok := m.tablesByQR[qrCode]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	return t, nil
}

func (m *mockCatalog) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	t, ok := m.tablesByID[id]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	return t, nil
}

func (m *mockCatalog) GetStall(ctx context.Context, id int64) (*model.Stall, error) {
	s, ok := m.stalls[id]
	if !ok {
		return nil, repository.ErrStallNotFound
	}
	return s, nil
}

func (m *mockCatalog) GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, repository.ErrMenuItemNotFound
	}
	return item, nil
}

// ----------------------------------------------------------------------------
// 事件总线 mock：只记录发布，不做扇出
// ----------------------------------------------------------------------------

type publishedEvent struct {
	Topic string
	Event eventbus.Event
}

type mockBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockBus) Publish(topic string, ev eventbus.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{Topic: topic, Event: ev})
}

// count 统计某主题下某类型事件的发布次数
func (m *mockBus) count(topic, eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Topic == topic && e.Event.Type == eventType {
			n++
		}
	}
	return n
}

func (m *mockBus) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// ----------------------------------------------------------------------------
// 通知 mock
// ----------------------------------------------------------------------------

type mockNotifier struct {
	mu            sync.Mutex
	stallCalls    int
	customerCalls int
	err           error // 注入投递失败
}

func (m *mockNotifier) NotifyStall(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stallCalls++
	return m.err
}

func (m *mockNotifier) NotifyCustomer(ctx context.Context, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customerCalls++
	return m.err
}

// ----------------------------------------------------------------------------
// 支付存储 mock
// ----------------------------------------------------------------------------

type mockPaymentStore struct {
	mu       sync.Mutex
	payments map[string]*model.Payment // "orderID:txnID" -> payment
	orders   *mockOrderRepo            // 确认时联动翻转订单支付状态
	nextID   int64
}

func newMockPaymentStore(orders *mockOrderRepo) *mockPaymentStore {
	return &mockPaymentStore{
		payments: make(map[string]*model.Payment),
		orders:   orders,
	}
}

func paymentKey(orderID int64, transactionID string) string {
	return fmt.Sprintf("%d:%s", orderID, transactionID)
}

func (m *mockPaymentStore) GetByOrderAndTransaction(ctx context.Context, orderID int64, transactionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[paymentKey(orderID, transactionID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentStore) Confirm(ctx context.Context, payment *model.Payment, orderNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := paymentKey(payment.OrderID, payment.TransactionID)
	if _, exists := m.payments[key]; exists {
		return repository.ErrDuplicatePayment
	}

	m.orders.mu.Lock()
	order, ok := m.orders.orders[orderNo]
	if ok && order.PaymentStatus != model.PaymentStatusPending {
		m.orders.mu.Unlock()
		return repository.ErrOrderAlreadyPaid
	}
	if ok {
		now := time.Now()
		order.PaymentStatus = model.PaymentStatusCompleted
		order.PaidAt = &now
	}
	m.orders.mu.Unlock()

	m.nextID++
	payment.ID = m.nextID
	m.payments[key] = payment
	return nil
}

func (m *mockPaymentStore) RecordFailure(ctx context.Context, payment *model.Payment, orderNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := paymentKey(payment.OrderID, payment.TransactionID)
	if _, exists := m.payments[key]; exists {
		return repository.ErrDuplicatePayment
	}

	m.orders.mu.Lock()
	order, ok := m.orders.orders[orderNo]
	if ok && order.PaymentStatus != model.PaymentStatusPending {
		m.orders.mu.Unlock()
		return repository.ErrOrderAlreadyPaid
	}
	if ok {
		order.PaymentStatus = model.PaymentStatusFailed
	}
	m.orders.mu.Unlock()

	m.nextID++
	payment.ID = m.nextID
	m.payments[key] = payment
	return nil
}

func (m *mockPaymentStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

// ----------------------------------------------------------------------------
// 分布式锁 mock：串行化靠进程内互斥量
// ----------------------------------------------------------------------------

type mockLocker struct {
	mu sync.Mutex
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	return m.mu.Unlock, nil
}

// ----------------------------------------------------------------------------
// 公共测试夹具
// ----------------------------------------------------------------------------

const (
	fixtureHawkerID    = int64(1)
	fixtureStallID     = int64(1)
	fixtureOwnerID     = int64(10)
	fixtureCustomerID  = int64(20)
	fixtureTableID     = int64(5)
	fixtureTableNumber = 12
	fixtureTableQR     = "QR-T12"
)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			OrderNoMaxRetries: 3,
			MaxRetryCount:     5,
		},
		Payment: config.PaymentConfig{
			MerchantUEN: "201403121W",
		},
	}
}

// seedCatalog 一个熟食中心、一个营业摊位、一张餐桌、两道在售菜品
func seedCatalog() *mockCatalog {
	catalog := newMockCatalog()
	catalog.addTable(&model.Table{
		ID:       fixtureTableID,
		HawkerID: fixtureHawkerID,
		Number:   fixtureTableNumber,
		QRCode:   fixtureTableQR,
	})
	catalog.stalls[fixtureStallID] = &model.Stall{
		ID:       fixtureStallID,
		HawkerID: fixtureHawkerID,
		OwnerID:  fixtureOwnerID,
		Name:     "Ah Huat Chicken Rice",
		IsOpen:   true,
	}
	catalog.items[101] = &model.MenuItem{
		ID:          101,
		StallID:     fixtureStallID,
		Name:        "Chicken Rice",
		Price:       mustDecimal("4.50"),
		IsAvailable: true,
	}
	catalog.items[102] = &model.MenuItem{
		ID:          102,
		StallID:     fixtureStallID,
		Name:        "Roasted Chicken Rice",
		Price:       mustDecimal("5.00"),
		IsAvailable: true,
	}
	return catalog
}
