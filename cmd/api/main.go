package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"appointly/cmd/internal/automation"
	"appointly/cmd/internal/config"
	"appointly/cmd/internal/domain/database"
	"appointly/cmd/internal/domain/database/repository"
	"appointly/cmd/internal/events"
	"appointly/cmd/internal/integration/aws/stepfunctions"
	"appointly/cmd/internal/routes"
	"appointly/cmd/internal/service"
	"appointly/cmd/internal/utils"
	"appointly/cmd/internal/utils/validators"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validators.New()

	// Init database
	db, err := database.Init(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal("failed to initialize database: ", err)
	}

	// Step Functions client
	sfnClient, err := stepfunctions.NewClient(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
	if err != nil {
		log.Fatal("failed to initialize step functions client: ", err)
	}

	// Getting repositories
	apptRepo := repository.NewAppointmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewTagRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	contactRepo := repository.NewContactRepository(db)
	automationRepo := repository.NewAutomationRepository(db)

	// Automations run off the request path
	dispatcher := automation.NewDispatcher(automationRepo, sfnClient, cfg.Automation.MaxParallel)
	handler := automation.NewEventHandler(automation.NewPayloadBuilder(orgRepo, contactRepo), dispatcher)
	publisher, shutdownEvents := startEvents(ctx, cfg, handler)
	defer shutdownEvents()

	// Getting services
	apptService := service.NewAppointmentService(apptRepo, userRepo, tagRepo, orgRepo, publisher, validate,
		cfg.PageSize, cfg.Location())

	// Getting routes
	apptRoutes := routes.NewAppointmentDefault(apptService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api := e.Group("/api", utils.TokenMiddleware(cfg.JWTSecret))
	apptRoutes.Register(api)

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down http server: %v", err)
	}
}

// startEvents wires the lifecycle event queue. With RabbitMQ enabled events
// go through the broker, otherwise they stay in process.
func startEvents(ctx context.Context, cfg *config.Config, handler events.Handler) (events.Publisher, func()) {
	if !cfg.RabbitMQ.Enabled {
		queue := events.NewLocalQueue(cfg.Automation.QueueSize, cfg.Automation.Workers, cfg.Automation.DispatchTimeout, handler)
		queue.Start()
		return queue, queue.Close
	}

	publisher, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Fatal("failed to connect event publisher: ", err)
	}
	consumer, err := events.NewRabbitConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue, cfg.Automation.DispatchTimeout)
	if err != nil {
		log.Fatal("failed to connect event consumer: ", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx, handler); err != nil {
			log.Errorf("event consumer stopped: %v", err)
		}
	}()

	return publisher, func() {
		_ = publisher.Close()
		<-done
		_ = consumer.Close()
	}
}
