package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shopqueue/libs/config"
	"github.com/md-rashed-zaman/shopqueue/libs/db"
	"github.com/md-rashed-zaman/shopqueue/libs/httpx"
	"github.com/md-rashed-zaman/shopqueue/libs/kafkax"
	otelx "github.com/md-rashed-zaman/shopqueue/libs/otel"
	"github.com/md-rashed-zaman/shopqueue/libs/runtime"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/dispatch"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/sms"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 5))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	emailSender := email.NewSMTPSender(email.SMTPConfig{
		Host:               config.String("SMTP_HOST", "mailpit"),
		Port:               config.Int("SMTP_PORT", 1025),
		Username:           config.String("SMTP_USER", ""),
		Password:           config.String("SMTP_PASS", ""),
		From:               config.String("SMTP_FROM", ""),
		InsecureSkipVerify: config.Bool("SMTP_INSECURE_SKIP_VERIFY", false),
	})

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""))
	default:
		smsSender = sms.NewNoopSender()
	}

	dispatcher := dispatch.New(emailSender, smsSender, storage.NewRepository(pool), logger,
		dispatch.WithFailSuffix(config.String("NOTIFICATION_FAIL_SUFFIX", "")),
	)

	brokers := config.String("KAFKA_BROKERS", "")
	topics := config.List("KAFKA_CONSUME_TOPICS", strings.Join(dispatch.Topics, ","))
	eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics:  topics,
	}, dispatcher.Handle)
	go eventConsumer.Run(ctx)
	logger.Info("consuming booking events", "topics", topics)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger, 10*time.Second)
}
