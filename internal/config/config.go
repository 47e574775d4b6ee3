package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	RedisAddr     string        // セッションストア
	RedisPassword string        //
	SessionTTL    time.Duration // カートの保持期間

	JWTSecret     string // JWT署名シークレット
	AdminEmail    string // 起動時に作る管理者
	AdminPassword string

	PublicBaseURL string // webhook/returnのURLに使う

	StripeSecretKey string // 空ならカード決済は無効
	StripeCurrency  string
	StripeAPIURL    string // テスト用に差し替え

	ChapaSecretKey     string // 空ならリダイレクト決済は無効
	ChapaBaseURL       string
	ChapaWebhookSecret string
	ChapaCurrency      string

	PaymentTimeout time.Duration

	StampPath      string // 受領印の画像
	ReceiptOrgName string

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := durationDefault("SESSION_TTL", 14*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	paymentTimeout, err := durationDefault("PAYMENT_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "storefront"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionTTL:    sessionTTL,

		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		StripeCurrency:  getenv("STRIPE_CURRENCY", "usd"),
		StripeAPIURL:    os.Getenv("STRIPE_API_URL"),

		ChapaSecretKey:     os.Getenv("CHAPA_SECRET_KEY"),
		ChapaBaseURL:       getenv("CHAPA_BASE_URL", "https://api.chapa.co"),
		ChapaWebhookSecret: os.Getenv("CHAPA_WEBHOOK_SECRET"),
		ChapaCurrency:      getenv("CHAPA_CURRENCY", "ETB"),

		PaymentTimeout: paymentTimeout,

		StampPath:      getenv("STAMP_PATH", "static/images/stamp.png"),
		ReceiptOrgName: getenv("RECEIPT_ORG_NAME", "Storefront"),

		GoEnv: getenv("GO_ENV", "dev"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PublicBaseURL == "" {
		return Config{}, fmt.Errorf("PUBLIC_BASE_URL is required")
	}

	return cfg, nil
}

// DATABASE_URLが無ければPOSTGRES_*から組み立てる
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) CardPaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

func (c Config) RedirectPaymentsEnabled() bool {
	return c.ChapaSecretKey != ""
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 15s): %w", key, err)
	}
	return d, nil
}
