package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/export"
	"storefront/internal/infra/payment"
	"storefront/internal/infra/receipt"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/session"
	"storefront/internal/server"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	logLevel := slog.LevelDebug
	if cfg.IsProduction() {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	//セッション（カート）
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "addr", cfg.RedisAddr, "err", err)
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	catalogRepo := infraRepo.NewCatalogGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	pendingRepo := infraRepo.NewPendingPaymentGormRepository(gormDB)
	contactRepo := infraRepo.NewContactMessageGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)
	carts := session.NewRedisCartStore(rdb, cfg.SessionTTL)

	//決済アダプタ（キーが無ければnilのまま＝その支払い方法は無効）
	var card usecase.CardProcessor
	if cfg.CardPaymentsEnabled() {
		card = payment.NewStripeCardProcessor(cfg.StripeSecretKey, cfg.StripeAPIURL, payment.DefaultBreakerSettings(), logger)
	} else {
		logger.Warn("card payments disabled: STRIPE_SECRET_KEY is empty")
	}
	var gateway usecase.RedirectGateway
	if cfg.RedirectPaymentsEnabled() {
		gateway = payment.NewChapaGateway(cfg.ChapaBaseURL, cfg.ChapaSecretKey, &http.Client{Timeout: cfg.PaymentTimeout}, payment.DefaultBreakerSettings(), logger)
	} else {
		logger.Warn("redirect payments disabled: CHAPA_SECRET_KEY is empty")
	}

	//受領印は起動時に一度だけ読む。無くてもレシートは出す
	stamp, err := receipt.LoadStamp(cfg.StampPath)
	if err != nil {
		logger.Warn("receipt stamp not loaded", "path", cfg.StampPath, "err", err)
		stamp = nil
	}
	htmlRenderer, err := receipt.NewHTMLRenderer()
	if err != nil {
		logger.Error("receipt template parse failed", "err", err)
		os.Exit(1)
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator())
	productUC := usecase.NewProductUsecase(txm, productRepo, catalogRepo)
	cartUC := usecase.NewCartUsecase(carts, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txm, carts, pendingRepo, card, gateway, usecase.CheckoutConfig{
		PublicBaseURL:   cfg.PublicBaseURL,
		CardCurrency:    cfg.StripeCurrency,
		GatewayCurrency: cfg.ChapaCurrency,
		PaymentTimeout:  cfg.PaymentTimeout,
	}, logger)
	confirmUC := usecase.NewPaymentConfirmUsecase(txm, carts, pendingRepo, gateway, cfg.ChapaWebhookSecret, cfg.PaymentTimeout, logger)
	receiptUC := usecase.NewReceiptUsecase(orderRepo, stamp, cfg.ReceiptOrgName)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, auditRepo)
	contactUC := usecase.NewContactUsecase(contactRepo)

	//管理者の初期作成
	if cfg.AdminEmail != "" {
		created, err := authUC.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Error("admin bootstrap failed", "email", cfg.AdminEmail, "err", err)
			os.Exit(1)
		}
		if created {
			logger.Info("admin user created", "email", cfg.AdminEmail)
		}
	}

	//Handler生成
	h := server.Handlers{
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(checkoutUC, receiptUC, receipt.NewPDFRenderer(true)),
		Payment:      handler.NewPaymentHandler(confirmUC),
		Contact:      handler.NewContactHandler(contactUC),
		AdminUser:    handler.NewAdminUserHandler(cfg, userRepo, authUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC, export.NewOrderXLSXExporter()),
	}
	e := server.New(cfg, logger, userRepo, htmlRenderer, h)

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}
	logger.Info("server starting", "addr", addr, "env", cfg.GoEnv)
	if err := server.Start(ctx, e, addr); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
