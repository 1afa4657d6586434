package main

import (
	"context"

	bookinghandler "sicakap/internal/booking/handler"
	bookingservice "sicakap/internal/booking/service"
	"sicakap/internal/datecontext/repository"
	dateservice "sicakap/internal/datecontext/service"
	deskhandler "sicakap/internal/desk/handler"
	"sicakap/internal/events"
	recordshandler "sicakap/internal/records/handler"
	recordsservice "sicakap/internal/records/service"
	"sicakap/internal/records/validator"
	"sicakap/internal/session/clock"
	sessionhandler "sicakap/internal/session/handler"
	sessionservice "sicakap/internal/session/service"
	"sicakap/pkg/app"
	"sicakap/pkg/client"
	"sicakap/pkg/config"
	"sicakap/pkg/contracts"
	"sicakap/pkg/kafka"
	kafka_config "sicakap/pkg/kafka/config"
	kafka_middleware "sicakap/pkg/kafka/middleware"
	"sicakap/pkg/locale"
	"sicakap/pkg/metrics"
	"sicakap/pkg/model"
	"sicakap/pkg/sealer"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	serviceName      = "sicakap-desk"
	recentEventLimit = 50
)

type registryClients struct {
	registry   *client.RegistryClient
	auth       *client.AuthClient
	pencatatan *client.PencatatanClient
	redaksi    *client.RedaksiClient
}

// rangeSettings serves the settings view, reading the range through the instrumented allocator.
type rangeSettings struct {
	allocator bookingservice.Allocator
	registry  *client.RegistryClient
}

func (s rangeSettings) Settings(ctx context.Context) (*model.RegistrationRange, error) {
	return s.allocator.Settings(ctx)
}

func (s rangeSettings) UpdateSettings(ctx context.Context, update model.RangeUpdate) error {
	return s.registry.UpdateSettings(ctx, update)
}

func (s rangeSettings) DateStatistics(ctx context.Context) ([]model.DateStatistic, error) {
	return s.registry.DateStatistics(ctx)
}

func main() {
	cfg := config.Load(serviceName)
	cfg.SetPreferenceBackend()
	log := cfg.Log

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	clients := initClients(cfg)

	recent := &events.Recorder{Limit: recentEventLimit}
	broadcaster := events.NewBroadcaster(
		events.NewLogObserver(log.Component("events")),
		events.NewMetricsObserver(m),
		recent,
	)
	stopPublisher := initEventPublisher(ctx, cfg, m, broadcaster)

	dates := initDateContext(ctx, cfg)

	allocator := bookingservice.NewInstrumentedAllocator(clients.registry, m)
	coordinator := initCoordinator(ctx, cfg, allocator, dates, broadcaster)

	monitor := sessionservice.NewMonitor(
		clients.auth,
		coordinator,
		broadcaster,
		clock.Real(),
		sessionservice.Settings{
			Timeout:           cfg.SessionTimeout,
			WarningLead:       cfg.WarningLead,
			HeartbeatInterval: cfg.HeartbeatInterval,
			ExpiryGrace:       cfg.ExpiryGrace,
		},
		log.Component("session"),
	)
	if _, err := monitor.CheckSession(ctx); err != nil {
		log.Warn("Registry session check failed at startup", "error", err)
	}

	recordService := recordsservice.NewRecordService(
		clients.pencatatan,
		coordinator,
		clients.redaksi,
		validator.NewRecordValidator(log),
		m,
		log.Component("records"),
	)

	go dates.Watch(ctx, cfg.RolloverInterval, coordinator.OnDateChange)

	checkers := append([]contracts.Checker{
		contracts.NewChecker("registry", func(ctx context.Context) error {
			_, err := clients.registry.Settings(ctx)
			return err
		}),
	}, cfg.Client.Checkers()...)

	application := app.NewApplication()
	application.SetApp(cfg,
		deskhandler.NewHealthHandler(log, checkers...),
		prometheus.DefaultGatherer,
		deskhandler.NewStateHandler(coordinator, monitor, dates, recent, log),
		bookinghandler.NewBookingHandler(coordinator, rangeSettings{allocator: allocator, registry: clients.registry}, log),
		sessionhandler.NewSessionHandler(monitor, log),
		recordshandler.NewRecordHandler(recordService, log),
	)
	application.OnShutdown(func(ctx context.Context) {
		monitor.Logout(ctx)
		cancel()
		stopPublisher()
	})

	log.Info("Desk ready", "operator_id", cfg.OperatorID, "registry", cfg.RegistryBaseURL)
	application.Run()
}

func initClients(cfg *config.Config) registryClients {
	httpClient := client.NewHttpClient(cfg.RegistryBaseURL, cfg.RegistryTimeout)
	return registryClients{
		registry:   client.NewRegistryClient(httpClient),
		auth:       client.NewAuthClient(httpClient),
		pencatatan: client.NewPencatatanClient(httpClient),
		redaksi:    client.NewRedaksiClient(httpClient),
	}
}

func initDateContext(ctx context.Context, cfg *config.Config) *dateservice.DateContext {
	loc, err := locale.LoadLocation(cfg.Timezone)
	if err != nil {
		cfg.Log.Fatal("Failed to load timezone", "timezone", cfg.Timezone, "error", err)
	}
	return dateservice.NewDateContext(initPreferenceStore(ctx, cfg), loc, cfg.Log.Component("datecontext"))
}

func initPreferenceStore(ctx context.Context, cfg *config.Config) repository.PreferenceStore {
	switch cfg.PrefsBackend {
	case config.PrefsMongo:
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		if err := repository.EnsureIndexes(ctx, db); err != nil {
			cfg.Log.Warn("Preference indexes not ensured", "error", err)
		}
		cfg.Log.Info("Preference store initialized", "backend", config.PrefsMongo, "database", cfg.MongoDatabaseName)
		return repository.NewMongoPreferenceStore(db, cfg.OperatorID, cfg.MongoConnTimeout)
	case config.PrefsRedis:
		cfg.Log.Info("Preference store initialized", "backend", config.PrefsRedis)
		return repository.NewRedisPreferenceStore(cfg.Client.Redis, cfg.OperatorID, cfg.RegistryTimeout)
	default:
		cfg.Log.Info("Preference store initialized", "backend", config.PrefsMemory)
		return repository.NewMemoryPreferenceStore()
	}
}

func initCoordinator(
	ctx context.Context,
	cfg *config.Config,
	allocator bookingservice.Allocator,
	dates *dateservice.DateContext,
	observer events.Observer,
) *bookingservice.Coordinator {
	ticketSealer, err := sealer.New([]byte(cfg.TicketKey))
	if err != nil {
		cfg.Log.Fatal("Failed to initialize ticket sealer", "error", err)
	}

	coordinator := bookingservice.NewCoordinator(allocator, dates, observer, ticketSealer, cfg.Log.Component("booking"))

	snap, err := coordinator.Restore(ctx)
	if err != nil {
		cfg.Log.Warn("Desk date not restored, starting idle", "error", err)
		return coordinator
	}
	cfg.Log.Info("Desk date restored", "date", snap.Date, "active_date", snap.ActiveDate)
	return coordinator
}

// initEventPublisher subscribes the Kafka observer when brokers are configured and
// returns the function that drains and closes it.
func initEventPublisher(ctx context.Context, cfg *config.Config, m *metrics.Metrics, broadcaster *events.Broadcaster) func() {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, desk events are not published")
		return func() {}
	}

	log := cfg.Log.Component("kafka")
	producer, err := kafka.NewProducer(kafkaCfg, log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(m))

	observer := events.NewKafkaObserver(producer, cfg.OperatorID, serviceName, kafkaCfg.PublishBuffer, kafkaCfg.PublishTimeout, log)
	observer.Start(ctx)
	broadcaster.Subscribe(observer)
	cfg.Log.Info("Desk events published to Kafka", "topic", producer.Topic(), "brokers", kafkaCfg.Brokers)

	return func() {
		observer.Stop()
		if err := producer.Close(); err != nil {
			log.Warn("Failed to close Kafka producer", "error", err)
		}
	}
}
