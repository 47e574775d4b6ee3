package repository_test

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infrarepo "storefront/internal/infra/repository"
	"storefront/internal/infra/session"
	"storefront/internal/usecase"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	return gdb, dsn
}

// gormを通さずにDBの行数を数える
func countRows(t *testing.T, dsn string, query string, args ...interface{}) int64 {
	t.Helper()

	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()

	var n int64
	require.NoError(t, sqlDB.QueryRow(query, args...).Scan(&n))
	return n
}

type checkoutEnv struct {
	db    *gorm.DB
	dsn   string
	store *session.RedisCartStore
	uc    *usecase.CheckoutUsecase
}

func newCheckoutEnv(t *testing.T) checkoutEnv {
	t.Helper()

	gdb, dsn := setupTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := session.NewRedisCartStore(client, time.Hour)

	uc := usecase.NewCheckoutUsecase(
		infrarepo.NewTxManagerGorm(gdb),
		store,
		infrarepo.NewPendingPaymentGormRepository(gdb),
		nil,
		nil,
		usecase.CheckoutConfig{PublicBaseURL: "http://localhost:8080"},
		nil,
	)
	return checkoutEnv{db: gdb, dsn: dsn, store: store, uc: uc}
}

func (env checkoutEnv) seedProduct(t *testing.T, name string, price string, stock int64) model.Product {
	t.Helper()
	p, err := infrarepo.NewProductGormRepository(env.db).Create(context.Background(), model.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (env checkoutEnv) fillCart(t *testing.T, sid string, p model.Product, qty int64) {
	t.Helper()
	cart := model.NewCart()
	_, err := cart.Add(model.CartItemSource{ProductID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}, qty)
	require.NoError(t, err)
	require.NoError(t, env.store.Save(context.Background(), sid, cart))
}

func testBuyer() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		Name:          "Abebe",
		Email:         "abebe@example.com",
		Phone:         "0911000000",
		City:          "Addis Ababa",
		PaymentMethod: string(model.PaymentMethodTestSuccess),
	}
}

func TestCheckout_PersistsOrderAndDecrementsStock(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	p := env.seedProduct(t, "Mug", "19.99", 3)
	env.fillCart(t, "sess-a", p, 2)

	out, err := env.uc.Checkout(ctx, "sess-a", testBuyer())
	require.NoError(t, err)
	require.NotZero(t, out.OrderID)

	order, err := infrarepo.NewOrderGormRepository(env.db).FindWithItems(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "39.98", order.Total.StringFixed(2))
	assert.Equal(t, model.PaymentStatusCompleted, order.PaymentStatus)
	assert.Len(t, order.ReceiptSignature, 32)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Mug", order.Items[0].ProductName)
	assert.Equal(t, int64(2), order.Items[0].QuantityOrZero())

	reloaded, err := infrarepo.NewProductGormRepository(env.db).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.Stock)

	cart, err := env.store.Load(ctx, "sess-a")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

// 署名はUPDATEで書き換わらない
func TestOrder_ReceiptSignatureIsWriteOnce(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	p := env.seedProduct(t, "Mug", "19.99", 1)
	env.fillCart(t, "sess-a", p, 1)
	out, err := env.uc.Checkout(ctx, "sess-a", testBuyer())
	require.NoError(t, err)

	orders := infrarepo.NewOrderGormRepository(env.db)
	before, err := orders.FindByID(ctx, out.OrderID)
	require.NoError(t, err)

	//更新できる列が無いのでUPDATE自体が発行されないこともある
	_ = env.db.Model(&before).Updates(model.Order{ReceiptSignature: "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"}).Error

	after, err := orders.FindByID(ctx, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, before.ReceiptSignature, after.ReceiptSignature)
}

// 在庫1に2人が同時に買うと、片方だけ成功する
func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	env := newCheckoutEnv(t)
	ctx := context.Background()

	p := env.seedProduct(t, "Last One", "10.00", 1)
	sessions := []string{"sess-a", "sess-b"}
	for _, sid := range sessions {
		env.fillCart(t, sid, p, 1)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(sessions))
	for i, sid := range sessions {
		wg.Add(1)
		go func(i int, sid string) {
			defer wg.Done()
			_, errs[i] = env.uc.Checkout(ctx, sid, testBuyer())
		}(i, sid)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		he, ok := usecase.AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, he.Status)
	}
	assert.Equal(t, 1, succeeded)

	reloaded, err := infrarepo.NewProductGormRepository(env.db).FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.Stock)

	assert.Equal(t, int64(1), countRows(t, env.dsn, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, int64(1), countRows(t, env.dsn, "SELECT COUNT(*) FROM order_items WHERE product_id = $1", p.ID))
}
