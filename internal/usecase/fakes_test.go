package usecase_test

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// インメモリDB（WithinTxはエラー時に巻き戻す）
// =====================

type memDB struct {
	mu sync.Mutex

	products    map[int64]model.Product
	variants    map[int64]model.ProductVariant
	orders      map[int64]model.Order
	items       map[int64][]model.OrderItem
	pendings    map[string]model.PendingPayment
	audits      []model.AuditLog
	adjustments []model.InventoryAdjustment
	nextID      int64

	//Orders().Createを失敗させる
	failOrderCreate error
}

func newMemDB() *memDB {
	return &memDB{
		products: map[int64]model.Product{},
		variants: map[int64]model.ProductVariant{},
		orders:   map[int64]model.Order{},
		items:    map[int64][]model.OrderItem{},
		pendings: map[string]model.PendingPayment{},
	}
}

func (db *memDB) addProduct(id int64, name string, price string, stock int64) {
	db.products[id] = model.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func (db *memDB) addVariant(id int64, productID int64, color string, price *string, stock int64) {
	v := model.ProductVariant{ID: id, ProductID: productID, Stock: stock, Color: &model.Color{Name: color}}
	if price != nil {
		v.Price = decimal.NewNullDecimal(decimal.RequireFromString(*price))
	}
	db.variants[id] = v
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

type memSnapshot struct {
	products map[int64]model.Product
	variants map[int64]model.ProductVariant
	orders   map[int64]model.Order
	items    map[int64][]model.OrderItem
	pendings map[string]model.PendingPayment
	audits   []model.AuditLog
	adjs     []model.InventoryAdjustment
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	return memSnapshot{
		products: copyMap(db.products),
		variants: copyMap(db.variants),
		orders:   copyMap(db.orders),
		items:    copyMap(db.items),
		pendings: copyMap(db.pendings),
		audits:   append([]model.AuditLog(nil), db.audits...),
		adjs:     append([]model.InventoryAdjustment(nil), db.adjustments...),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.products = s.products
	db.variants = s.variants
	db.orders = s.orders
	db.items = s.items
	db.pendings = s.pendings
	db.audits = s.audits
	db.adjustments = s.adjs
}

// TransactionManager
type memTx struct{ db *memDB }

func (t memTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	snap := t.db.snapshot()
	if err := fn(memRepos{db: t.db}); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memRepos struct{ db *memDB }

func (r memRepos) Orders() repo.OrderRepository                   { return memOrders{db: r.db} }
func (r memRepos) OrderItems() repo.OrderItemRepository           { return memOrderItems{db: r.db} }
func (r memRepos) Products() repo.ProductRepository               { return memProducts{db: r.db} }
func (r memRepos) Inventory() repo.InventoryRepository            { return memInventory{db: r.db} }
func (r memRepos) PendingPayments() repo.PendingPaymentRepository { return memPendings{db: r.db} }
func (r memRepos) AuditLogs() repo.AuditLogRepository             { return memAudits{db: r.db} }

// ProductRepository
type memProducts struct{ db *memDB }

func (m memProducts) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	out := []model.Product{}
	for _, p := range m.db.products {
		if p.Stock > 0 {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (m memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := m.db.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m memProducts) FindDetail(ctx context.Context, id int64) (model.Product, error) {
	p, err := m.FindByID(ctx, id)
	if err != nil {
		return p, err
	}
	for _, v := range m.db.variants {
		if v.ProductID == id {
			p.Variants = append(p.Variants, v)
		}
	}
	return p, nil
}

func (m memProducts) FindVariant(ctx context.Context, productID int64, variantID int64) (model.ProductVariant, error) {
	v, ok := m.db.variants[variantID]
	if !ok || v.ProductID != productID {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	return v, nil
}

func (m memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID = m.db.id()
	m.db.products[p.ID] = p
	return p, nil
}

func (m memProducts) Update(ctx context.Context, p model.Product) error {
	if _, ok := m.db.products[p.ID]; !ok {
		return repo.ErrNotFound
	}
	m.db.products[p.ID] = p
	return nil
}

func (m memProducts) SoftDelete(ctx context.Context, id int64) error {
	if _, ok := m.db.products[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.db.products, id)
	return nil
}

func (m memProducts) CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	v.ID = m.db.id()
	m.db.variants[v.ID] = v
	return v, nil
}

// InventoryRepository（UPDATE ... WHERE stock >= ? と同じ判定）
type memInventory struct{ db *memDB }

func (m memInventory) SetStock(ctx context.Context, productID int64, newStock int64) error {
	p, ok := m.db.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	m.db.products[productID] = p
	return nil
}

func (m memInventory) SetVariantStock(ctx context.Context, variantID int64, newStock int64) error {
	v, ok := m.db.variants[variantID]
	if !ok {
		return repo.ErrNotFound
	}
	v.Stock = newStock
	m.db.variants[variantID] = v
	return nil
}

func (m memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	m.db.products[productID] = p
	return true, nil
}

func (m memInventory) DecreaseVariantStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	v, ok := m.db.variants[variantID]
	if !ok || v.Stock < qty {
		return false, nil
	}
	v.Stock -= qty
	m.db.variants[variantID] = v
	return true, nil
}

func (m memInventory) CreateAdjustment(ctx context.Context, a model.InventoryAdjustment) error {
	m.db.adjustments = append(m.db.adjustments, a)
	return nil
}

// OrderRepository
type memOrders struct{ db *memDB }

func (m memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	o, ok := m.db.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) FindWithItems(ctx context.Context, id int64) (model.Order, error) {
	o, err := m.FindByID(ctx, id)
	if err != nil {
		return o, err
	}
	o.Items = append([]model.OrderItem(nil), m.db.items[id]...)
	return o, nil
}

func (m memOrders) Create(ctx context.Context, o model.Order) (int64, error) {
	if m.db.failOrderCreate != nil {
		return 0, m.db.failOrderCreate
	}
	o.ID = m.db.id()
	o.Items = nil
	m.db.orders[o.ID] = o
	return o.ID, nil
}

func (m memOrders) UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus) error {
	o, ok := m.db.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.PaymentStatus = status
	m.db.orders[id] = o
	return nil
}

func (m memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	out := []model.Order{}
	for id, o := range m.db.orders {
		if f.PaymentStatus != "" && string(o.PaymentStatus) != f.PaymentStatus {
			continue
		}
		o.Items = m.db.items[id]
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

// OrderItemRepository
type memOrderItems struct{ db *memDB }

func (m memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = m.db.id()
		items[i].OrderID = orderID
	}
	m.db.items[orderID] = append(m.db.items[orderID], items...)
	return nil
}

func (m memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return m.db.items[orderID], nil
}

// PendingPaymentRepository
type memPendings struct{ db *memDB }

func (m memPendings) Create(ctx context.Context, p model.PendingPayment) (model.PendingPayment, error) {
	p.ID = m.db.id()
	m.db.pendings[p.TxRef] = p
	return p, nil
}

func (m memPendings) FindByTxRef(ctx context.Context, txRef string) (model.PendingPayment, error) {
	p, ok := m.db.pendings[txRef]
	if !ok {
		return model.PendingPayment{}, repo.ErrNotFound
	}
	return p, nil
}

func (m memPendings) FindByTxRefForUpdate(ctx context.Context, txRef string) (model.PendingPayment, error) {
	return m.FindByTxRef(ctx, txRef)
}

func (m memPendings) UpdateStatus(ctx context.Context, id int64, status model.PendingPaymentStatus, orderID *int64) error {
	for k, p := range m.db.pendings {
		if p.ID == id {
			p.Status = status
			if orderID != nil {
				p.OrderID = orderID
			}
			m.db.pendings[k] = p
			return nil
		}
	}
	return repo.ErrNotFound
}

// AuditLogRepository
type memAudits struct{ db *memDB }

func (m memAudits) Create(ctx context.Context, l model.AuditLog) error {
	m.db.audits = append(m.db.audits, l)
	return nil
}

func (m memAudits) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	out := []model.AuditLog{}
	for _, l := range m.db.audits {
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// =====================
// セッションのカート
// =====================

type memCarts struct {
	carts    map[string]model.Cart
	clearErr error
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string]model.Cart{}}
}

func (m *memCarts) Load(ctx context.Context, sid string) (model.Cart, error) {
	c, ok := m.carts[sid]
	if !ok {
		return model.NewCart(), nil
	}
	//呼び出し側の変更が保存前に漏れないようにコピー
	return model.Cart{Lines: copyMap(c.Lines)}, nil
}

func (m *memCarts) Save(ctx context.Context, sid string, c model.Cart) error {
	m.carts[sid] = model.Cart{Lines: copyMap(c.Lines)}
	return nil
}

func (m *memCarts) Clear(ctx context.Context, sid string) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	delete(m.carts, sid)
	return nil
}

func (m *memCarts) Update(ctx context.Context, sid string, fn func(cart *model.Cart) error) (model.Cart, error) {
	c, _ := m.Load(ctx, sid)
	if err := fn(&c); err != nil {
		return model.Cart{}, err
	}
	if c.IsEmpty() {
		delete(m.carts, sid)
		return c, nil
	}
	_ = m.Save(ctx, sid, c)
	return c, nil
}

// カートに直接1行入れる
func (m *memCarts) put(sid string, db *memDB, productID int64, variantID *int64, qty int64) {
	p := db.products[productID]
	src := model.CartItemSource{ProductID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock + qty, Image: p.Image}
	if variantID != nil {
		v := db.variants[*variantID]
		src.VariantID = variantID
		src.Name = v.DisplayName(p)
		src.Price = v.EffectivePrice(p)
		src.Stock = v.Stock + qty
	}
	c, _ := m.Load(context.Background(), sid)
	if _, err := c.Add(src, qty); err != nil {
		panic(err)
	}
	_ = m.Save(context.Background(), sid, c)
}

// =====================
// 決済アダプタのモック
// =====================

type MockCardProcessor struct {
	mock.Mock
}

func (m *MockCardProcessor) Charge(ctx context.Context, req usecase.ChargeRequest) (usecase.ChargeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(usecase.ChargeResult)
	return res, args.Error(1)
}

type MockRedirectGateway struct {
	mock.Mock
}

func (m *MockRedirectGateway) Initiate(ctx context.Context, req usecase.InitiateRequest) (usecase.InitiateResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(usecase.InitiateResult)
	return res, args.Error(1)
}

func (m *MockRedirectGateway) Verify(ctx context.Context, txRef string) (usecase.VerifyResult, error) {
	args := m.Called(ctx, txRef)
	res, _ := args.Get(0).(usecase.VerifyResult)
	return res, args.Error(1)
}

var (
	_ repo.TransactionManager = memTx{}
	_ repo.CartStore          = (*memCarts)(nil)
	_ usecase.CardProcessor   = (*MockCardProcessor)(nil)
	_ usecase.RedirectGateway = (*MockRedirectGateway)(nil)
)

var errBoom = errors.New("boom")

func int64Ptr(v int64) *int64 { return &v }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
