package main

import (
	"arena/src/apperror"
	"arena/src/boot"
	"arena/src/checkout"
	"arena/src/config"
	"arena/src/lib"
	awslib "arena/src/lib/aws"
	"arena/src/middlewares"
	"arena/src/pricing"
	"arena/src/types"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"regexp"
	"syscall"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const (
	apiPrefix string = "/api/v1"
)

type handlerDeps struct {
	cfg      *config.App
	db       *gorm.DB
	engine   *pricing.Engine
	checkout *checkout.Service
	idem     *lib.IdempotencyStore
}

func abortWithError(ctx *gin.Context, err error) {
	status := apperror.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error on %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": apperror.Message(err)})
}

func maintenanceModeMiddleware(g *gin.Engine, enabled bool) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if enabled {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func corsMiddleware(cfg *config.App) gin.HandlerFunc {
	if cfg.APIEnv == "local" {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		match, _ := regexp.MatchString(regexp.QuoteMeta(cfg.AppHost), origin)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	return cors.New(cc)
}

func setupRouter(d *handlerDeps) *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.Use(corsMiddleware(d.cfg))

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerValidators(v)
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router = maintenanceModeMiddleware(router, d.cfg.MaintenanceMode)

	public := router.Group(apiPrefix)
	webhookHandlers(public, d)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware(d.db, []byte(d.cfg.JWTSecret)))
	{
		courtHandlers(authorized, d)
		availabilityHandlers(authorized, d)
		checkoutHandlers(authorized, d)
	}

	admin := router.Group(apiPrefix)
	admin.Use(middlewares.AuthMiddleware(d.db, []byte(d.cfg.JWTSecret)), middlewares.RequireRole(types.ROLE_ADMIN))
	{
		courtAdminHandlers(admin, d)
		pricingHandlers(admin, d)
	}
	return router
}

// paymentGateway picks the configured provider. A nil return leaves every
// booking on the offline path.
func paymentGateway(cfg *config.App) checkout.PaymentGateway {
	switch cfg.PaymentGateway {
	case "xendit":
		if cfg.XenditSecretKey == "" {
			log.Println("[gateway] XENDIT_SECRET_KEY is not set, payments are offline only")
			return nil
		}
		return lib.NewXenditClient(cfg.XenditBaseURL, cfg.XenditSecretKey)
	case "stripe":
		if cfg.StripeSecretKey == "" {
			log.Println("[gateway] STRIPE_SECRET_KEY is not set, payments are offline only")
			return nil
		}
		return lib.NewStripeGateway(lib.GetStripeClient(cfg.StripeSecretKey), cfg.AppHost)
	default:
		log.Printf("[gateway] unknown gateway %q, payments are offline only\n", cfg.PaymentGateway)
		return nil
	}
}

// mailSender returns the configured transport, or nil when mail is off.
func mailSender(cfg *config.App) checkout.MailSender {
	switch cfg.MailTransport {
	case "ses":
		client, err := awslib.GetSESClient(context.Background())
		if err != nil {
			return nil
		}
		return awslib.NewSESMailer(client, cfg.MailFrom)
	case "sqs":
		if cfg.EmailQueueURL == "" {
			return nil
		}
		client, err := awslib.GetSQSClient(context.Background())
		if err != nil {
			log.Printf("Error loading SQS client: %s\n", err.Error())
			return nil
		}
		return awslib.NewSQSMailQueue(client, cfg.EmailQueueURL, cfg.MailFrom)
	default:
		if cfg.SMTPHost == "" {
			return nil
		}
		return lib.NewMailer(lib.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}
}

func newHandlerDeps(cfg *config.App, db *gorm.DB) *handlerDeps {
	opts := []checkout.Option{checkout.WithCurrency(cfg.Currency)}
	if sender := mailSender(cfg); sender != nil {
		opts = append(opts, checkout.WithNotifier(checkout.NewMailNotifier(sender)))
	}
	d := &handlerDeps{
		cfg:      cfg,
		db:       db,
		engine:   pricing.NewEngine(db, config.BusinessLocation),
		checkout: checkout.NewService(db, paymentGateway(cfg), opts...),
	}
	if cfg.RedisHost != "" {
		d.idem = lib.NewIdempotencyStore(lib.GetRedisClient(cfg.RedisHost), cfg.WebhookIdempotency)
	}
	return d
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	if err := os.MkdirAll(path.Dir(apiLogs), 0o755); err != nil {
		log.Printf("Could not create log directory: %s\n", err.Error())
		return
	}
	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "" || apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env file loaded: %s\n", err.Error())
		}
	}
	initLogger()

	cfg := config.Load()
	db := boot.InitDb()
	d := newHandlerDeps(cfg, db)
	boot.InitScheduler(d.checkout, cfg.HoldSweepInterval)

	router := setupRouter(d)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: config.RequestTimeout,
	}
	go func() {
		log.Printf("Listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	boot.StopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	d.checkout.Drain()
	log.Println("Server exiting")
}
