package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// const dsn = "host=localhost user=postgres password=password dbname=arenadb port=5432 sslmode=disable TimeZone=Asia/Jakarta"

type App struct {
	APIEnv          string `envconfig:"API_ENV" default:"local"`
	Port            string `envconfig:"PORT" default:"8080"`
	MaintenanceMode bool   `envconfig:"MAINTENANCE_MODE" default:"false"`
	AppHost         string `envconfig:"APP_HOST" default:"http://localhost:3000"`
	JWTSecret       string `envconfig:"JWT_SECRET"`
	RedisHost       string `envconfig:"REDIS_HOST"`

	PaymentGateway      string `envconfig:"PAYMENT_GATEWAY" default:"xendit"`
	XenditBaseURL       string `envconfig:"XENDIT_BASE_URL" default:"https://api.xendit.co"`
	XenditSecretKey     string `envconfig:"XENDIT_SECRET_KEY"`
	XenditCallbackToken string `envconfig:"XENDIT_CALLBACK_TOKEN"`
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	Currency            string `envconfig:"CURRENCY" default:"IDR"`

	HoldSweepInterval  time.Duration `envconfig:"HOLD_SWEEP_INTERVAL" default:"1m"`
	WebhookIdempotency time.Duration `envconfig:"WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`

	// smtp, ses or sqs. Mail is disabled when the chosen transport is not configured.
	MailTransport string `envconfig:"MAIL_TRANSPORT" default:"smtp"`
	EmailQueueURL string `envconfig:"EMAIL_QUEUE_URL"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"no-reply@arena.local"`
}

var app *App

// Load reads the environment once and caches the result.
func Load() *App {
	if app != nil {
		return app
	}
	var c App
	if err := envconfig.Process("", &c); err != nil {
		log.Fatalf("Error reading configuration: %s\n", err.Error())
	}
	app = &c
	return app
}

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	if DATABASE_TIMEZONE == "" {
		DATABASE_TIMEZONE = "UTC"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const DATE_FORMAT = "2006-01-02"

// All local calendar arithmetic happens in this zone (UTC+7). Stored instants are UTC.
var BusinessLocation = time.FixedZone("WIB", 7*60*60)

const (
	TxTimeout      = 60 * time.Second
	RequestTimeout = 5 * time.Minute
	NotifyTimeout  = 30 * time.Second

	GatewayHoldWindow = 15 * time.Minute
	OfflineHoldWindow = 24 * time.Hour

	// Longest span a single range-pricing request may cover.
	MaxRangeDays = 366
)
