package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zapdesk/config"
	"zapdesk/db"
	"zapdesk/feed"
	"zapdesk/router"
	"zapdesk/services"
	"zapdesk/tools"
	"zapdesk/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// =====================
// Configuração
// =====================
//
// config.json (opcional, -config ou ZAPDESK_CONFIG) + variáveis de ambiente,
// que sobrescrevem o arquivo: EVOLUTION_API_URL, EVOLUTION_API_KEY,
// SECURITY_JWT_SECRET, DATABASE, DB_PATH, AMQP_URL, RECONCILE_SCHEDULE...
// Um .env no diretório atual é carregado antes, se existir.
//
// =====================

func main() {
	_ = godotenv.Load()

	defaultPath := os.Getenv("ZAPDESK_CONFIG")
	if defaultPath == "" {
		defaultPath = "config.json"
	}
	configPath := flag.String("config", defaultPath, "caminho do config.json")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := tools.InitLogger(conf.LogMode, conf.LogPath)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := conf.Validate(); err != nil {
		zap.S().Fatal(err)
	}

	database, err := db.Connect(conf)
	if err != nil {
		zap.S().Fatalf("database: %v", err)
	}
	defer database.Close()

	hub := feed.NewHub()
	notifiers := feed.Multi{hub}
	if conf.Amqp.URL != "" {
		publisher, err := feed.NewAMQPPublisher(conf.Amqp.URL, conf.Amqp.Exchange)
		if err != nil {
			zap.S().Fatalf("amqp: %v", err)
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		zap.S().Infof("amqp: publishing changes to exchange %s", conf.Amqp.Exchange)
	}

	instances := services.NewInstanceRegistry(database, notifiers)
	conversations := services.NewConversationRepository(database, notifiers)
	gateway := tools.NewEvolutionClient(
		conf.Evolution.ApiURL,
		conf.Evolution.ApiKey,
		time.Duration(conf.Evolution.TimeoutSeconds)*time.Second,
	)

	reconciler := workers.NewReconciler(gateway, instances, conf.Reconcile.Concurrency)
	if conf.Reconcile.Schedule != "" {
		if err := reconciler.Start(conf.Reconcile.Schedule); err != nil {
			zap.S().Fatalf("reconciler: %v", err)
		}
	}

	if conf.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	router.Initialize(r, conf, router.Deps{
		Proxy:         services.NewProxy(gateway, instances, conversations),
		Ingestor:      services.NewIngestor(instances, conversations),
		Instances:     instances,
		Conversations: conversations,
		Verifier:      services.NewTokenVerifier(conf.Security.JwtSecret),
		Tenants:       services.NewTenantResolver(database),
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:              ":" + conf.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infof("zapdesk listening on :%s", conf.ApiPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalf("http: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.S().Errorf("http shutdown: %v", err)
	}
	reconciler.Stop(ctx)
}
