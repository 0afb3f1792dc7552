package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rohitgami11/MayaCode/internal/api"
	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/internal/consumer"
	"github.com/rohitgami11/MayaCode/internal/fanout"
	"github.com/rohitgami11/MayaCode/internal/gateway"
	"github.com/rohitgami11/MayaCode/internal/history"
	"github.com/rohitgami11/MayaCode/internal/producer"
	"github.com/rohitgami11/MayaCode/internal/store"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()
	l.Info().Int("port", cfg.Server.Port).Msg("starting chat backend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The message store is the durability tier; without it neither the
	// batch consumer nor catch-up can work, so failing here is fatal.
	messageStore, err := store.NewMongoStore(ctx, cfg.Mongo)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to message store")
	}
	defer messageStore.Close(context.Background())

	if err := messageStore.EnsureIndexes(ctx); err != nil {
		l.Fatal().Err(err).Msg("failed to create message store indexes")
	}
	l.Info().Str("database", cfg.Mongo.Database).Msg("connected to message store")

	// Fan-out broker is optional: without it, real-time delivery degrades
	// to same-instance room broadcast and the history cache is disabled.
	var pubsub fanout.PubSub
	var historyCache history.MessageCache = history.NoopCache{}

	if cfg.Redis.Address == "" {
		l.Warn().Msg("redis not configured, fan-out disabled")
		pubsub = fanout.NewNoopPubSub()
	} else if rps, err := fanout.NewRedisPubSub(ctx, cfg.Redis); err != nil {
		l.Warn().Err(err).Msg("redis unreachable, fan-out disabled")
		pubsub = fanout.NewNoopPubSub()
	} else {
		pubsub = rps
		historyCache = history.NewRedisCache(rps.Client())
		l.Info().Str("address", cfg.Redis.Address).Msg("connected to fan-out broker")
	}

	// The event log is optional too: chat ingestion becomes unavailable
	// rather than taking down the whole process.
	var msgProducer producer.Producer
	if publisher, err := producer.NewConfluentPublisher(cfg.Kafka); err != nil {
		l.Warn().Err(err).Msg("event log unreachable, chat ingestion disabled")
		msgProducer = producer.Unavailable{Topic: cfg.Kafka.ChatTopic}
	} else {
		msgProducer = producer.NewIngestor(publisher)
		l.Info().Str("brokers", cfg.Kafka.Brokers).Str(log.FieldTopic, cfg.Kafka.ChatTopic).Msg("connected to event log")
	}

	batchConsumer := consumer.NewConsumer(cfg.Kafka, cfg.Consumer, messageStore)
	if err := batchConsumer.StartConsuming(ctx); err != nil {
		l.Warn().Err(err).Msg("batch consumer unavailable, durable persistence of new chat events disabled")
	}

	// Connection gateway
	hub := gateway.NewHub()
	go hub.Run()

	chatSvc := gateway.NewChatService(hub, msgProducer, messageStore, pubsub)
	if err := chatSvc.Start(ctx); err != nil {
		l.Warn().Err(err).Msg("failed to start chat service subscriptions")
	}
	defer chatSvc.Stop()

	wsHandler := gateway.NewWSHandler(hub, chatSvc, cfg.WebSocket)

	// HTTP surface
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(log.GinMiddleware(l), gin.Recovery())

	historySvc := history.NewService(messageStore, historyCache, cfg.History.CacheTTL)
	httpHandler := api.NewHTTPHandler(messageStore, historySvc, batchConsumer)
	httpHandler.RegisterRoutes(router)

	router.GET("/chat/ws", gin.WrapF(wsHandler.HandleWebSocket))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down")

	// Drain the consumer buffer before releasing the log connection.
	if err := batchConsumer.StopConsuming(); err != nil {
		l.Warn().Err(err).Msg("consumer shutdown error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("http server forced to shutdown")
	}

	l.Info().Msg("chat backend stopped")
}
