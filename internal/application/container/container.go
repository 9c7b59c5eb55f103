// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	appservices "github.com/dailymirror/mirror-go/internal/application/services"
	"github.com/dailymirror/mirror-go/internal/domain/services"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching"
	"github.com/dailymirror/mirror-go/internal/infrastructure/caching/manager"
	"github.com/dailymirror/mirror-go/internal/infrastructure/email"
	"github.com/dailymirror/mirror-go/internal/infrastructure/media"
	"github.com/dailymirror/mirror-go/internal/infrastructure/messaging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/logging"
	"github.com/dailymirror/mirror-go/internal/infrastructure/observability/performance"
	"github.com/dailymirror/mirror-go/internal/infrastructure/persistence"
	"github.com/dailymirror/mirror-go/internal/infrastructure/providers"
	"github.com/dailymirror/mirror-go/internal/infrastructure/resilience"
	"github.com/dailymirror/mirror-go/internal/infrastructure/retry"
	"github.com/dailymirror/mirror-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services (stateless singletons)
	RecommendationService *appservices.RecommendationService
	NotificationService   *appservices.NotificationService
	FeedbackService       *appservices.FeedbackService

	// Infrastructure Dependencies
	Logger       *logging.ChanneledLogger
	Tracker      *performance.Tracker
	Backend      persistence.Store
	Store        *caching.Store
	Executor     *retry.Executor
	CacheManager *manager.Manager
	Coordinator  *resilience.Coordinator
	Hub          *messaging.Hub
	Platform     services.DeliveryPlatform
	Mailer       email.Service
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	tracker := performance.NewTracker(&performance.TrackerConfig{
		SampleCap: config.MetricsSampleCap,
		EMAAlpha:  config.MetricsEMAAlpha,
	})

	backend, err := openBackend(logger)
	if err != nil {
		return nil, fmt.Errorf("opening persistent store: %w", err)
	}

	store := caching.NewStore(backend, logger, tracker)
	executor := retry.NewExecutor(logger)
	optimizer := media.NewOptimizer(config.MediaBasePath, config.ImageMaxWidth, config.ImageWebPQuality, logger)

	styleAPI, err := providers.NewStyleAPIClient(logger)
	if err != nil {
		return nil, fmt.Errorf("creating style API client: %w", err)
	}

	var weather services.WeatherProvider
	if weatherClient, err := providers.NewWeatherClient(); err == nil {
		weather = weatherClient
	} else {
		logger.Startup().Warn("Weather service not configured, seasonal defaults apply", "reason", err.Error())
	}

	var scribe services.Transcriber
	if transcriber, err := messaging.NewVoiceTranscriber(logger); err == nil {
		scribe = transcriber
	} else {
		logger.Startup().Warn("Voice transcription not configured", "reason", err.Error())
	}

	cacheManager := manager.NewManager(store, executor, tracker, logger, styleAPI, styleAPI, scribe, optimizer)

	hub := messaging.NewHub(logger)

	var platform services.DeliveryPlatform
	if pushClient, err := messaging.NewPushClient(logger); err == nil {
		platform = pushClient
	} else {
		logger.Startup().Warn("Push gateway not configured, using sandbox platform", "reason", err.Error())
		platform = messaging.NewSandboxPlatform(logger)
	}

	var mailer email.Service
	if emailService, err := email.NewService(); err == nil {
		mailer = emailService
	} else {
		logger.Startup().Warn("Email service not configured", "reason", err.Error())
	}

	coordinator := resilience.NewCoordinator(cacheManager, executor, styleAPI, weather, styleAPI, hub, logger)

	notificationService := appservices.NewNotificationService(store, platform, coordinator, mailer, logger)
	recommendationService := appservices.NewRecommendationService(coordinator, cacheManager, styleAPI, notificationService, logger)
	feedbackService := appservices.NewFeedbackService(cacheManager, logger)

	return &Container{
		RecommendationService: recommendationService,
		NotificationService:   notificationService,
		FeedbackService:       feedbackService,

		Logger:       logger,
		Tracker:      tracker,
		Backend:      backend,
		Store:        store,
		Executor:     executor,
		CacheManager: cacheManager,
		Coordinator:  coordinator,
		Hub:          hub,
		Platform:     platform,
		Mailer:       mailer,
	}, nil
}

// openBackend selects the persistent store driver: a remote libsql database
// when STORE_URL is set, the local sqlite file otherwise.
func openBackend(logger *logging.ChanneledLogger) (persistence.Store, error) {
	if config.StoreURL != "" {
		return persistence.NewSQLStore("libsql", config.StoreURL, logger)
	}
	return persistence.NewSQLStore(config.StoreDriver, config.StorePath, logger)
}
