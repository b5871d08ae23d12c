package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/modules/functions"
	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/email"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/mongo"
	"github.com/dmitrymomot/storefront/pkg/otp"
	"github.com/dmitrymomot/storefront/pkg/ratelimiter"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/requestid"
	"github.com/dmitrymomot/storefront/pkg/upload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("functions stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env(), cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var (
		otpStore     otp.Store
		userStorage  auth.Storage
		limiterStore ratelimiter.Store
		checks       []httpserver.Check
	)

	if cfg.needsMongo() {
		db, err := mongo.Database(ctx, cfg.mongoCfg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Client().Disconnect(ctx)
		}()
		checks = append(checks, httpserver.Check{Name: "mongo", Check: mongo.Healthcheck(db.Client())})

		users := auth.NewMongoStorage(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return err
		}
		userStorage = users

		if cfg.OTPStore == storeMongo {
			records := otp.NewMongoStore(db, otp.DefaultMongoCollection)
			if err := records.EnsureIndexes(ctx); err != nil {
				return err
			}
			otpStore = records
		}
	}

	if cfg.needsRedis() {
		client, err := redis.Connect(ctx, cfg.redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		checks = append(checks, httpserver.Check{Name: "redis", Check: redis.Healthcheck(client)})

		otpStore = otp.NewRedisStore(client, cfg.redisCfg.KeyPrefix)
		limiterStore = ratelimiter.NewRedisStore(client, cfg.redisCfg.KeyPrefix)
	}

	if cfg.OTPStore == storeMemory {
		log.Warn("using in-memory stores; data is lost on restart")
		otpStore = otp.NewMemoryStore()
		userStorage = auth.NewMemoryStorage()
	}
	if limiterStore == nil {
		mem := ratelimiter.NewMemoryStore()
		defer mem.Close()
		limiterStore = mem
	}

	limiter, err := ratelimiter.NewBucket(limiterStore, cfg.RateLimit)
	if err != nil {
		return err
	}

	gateway, err := email.NewGatewayFromConfig(cfg.Email, cfg.Env(), log)
	if err != nil {
		return err
	}
	log.Info("email gateway ready", slog.Any("providers", gateway.Providers()))

	identity := auth.NewIdentityService(userStorage, auth.WithIdentityLogger(log))
	otpSvc := otp.NewService(otpStore, gateway, identity,
		otp.WithConfig(cfg.OTP),
		otp.WithLogger(log),
	)

	var signer functions.URLSigner
	if cfg.Upload.Enabled() {
		s, err := upload.NewSigner(ctx, cfg.Upload)
		if err != nil {
			return err
		}
		signer = s
	} else {
		log.Warn("UPLOAD_BUCKET not set; /uploads/sign answers 503")
	}

	if cfg.APIKey == "" {
		log.Warn("FUNCTIONS_API_KEY not set; protected endpoints reject every request")
	}

	errorHandler := handler.NewErrorHandler(log, functions.OTPErrorMapper)
	router := functions.Router(functions.RouterOptions{
		OTP:            functions.NewOTPService(otpSvc, errorHandler),
		Notifications:  functions.NewNotificationService(gateway, errorHandler),
		Uploads:        functions.NewUploadService(signer, errorHandler),
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        limiter,
		Readiness:      checks,
		Logger:         log,
	})

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return server.Run(ctx, router)
}
