package config

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/orderflow/order-system/order-service/activities"
	"github.com/orderflow/order-system/order-service/application"
	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/order-service/handlers"
	"github.com/orderflow/order-system/order-service/infrastructure"
	sharedinfra "github.com/orderflow/order-system/shared/infrastructure"
	"github.com/orderflow/order-system/shared/telemetry"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Persistence
	InstanceRepository *infrastructure.PostgresInstanceRepository
	HistoryStore       *infrastructure.PostgresHistoryStore

	// Activities
	ActivityRegistry *domain.ActivityRegistry

	// Use Cases
	RunOrchestration     *application.RunOrchestration
	StartOrderProcessing *application.StartOrderProcessing
	GetOrderStatus       *application.GetOrderStatus
	ResumeOrchestrations *application.ResumeOrchestrations

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Event Handlers
	OrderEventHandlers *handlers.OrderEventHandlers

	// Infrastructure
	EventPublisher  *sharedinfra.SNSPublisherAdapter
	EventSubscriber *sharedinfra.SQSSubscriberAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.OrderServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			log.Printf("Failed to initialize telemetry: %v", err)
			// Continue without telemetry rather than failing
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	deps.DB = db

	// Initialize AWS infrastructure
	eventPublisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.SNSTopicArn)
	if err != nil {
		return nil, fmt.Errorf("failed to create SNS publisher: %w", err)
	}
	deps.EventPublisher = eventPublisher

	eventSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.SQSQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQS subscriber: %w", err)
	}
	deps.EventSubscriber = eventSubscriber

	// Initialize persistence
	deps.InstanceRepository = infrastructure.NewPostgresInstanceRepository(db)
	deps.HistoryStore = infrastructure.NewPostgresHistoryStore(db)

	// Initialize activities
	sleeper := domain.SystemSleeper{}
	deps.ActivityRegistry = domain.NewActivityRegistry(
		activities.NewReserveInventory(sleeper),
		activities.NewProcessPayment(sleeper),
		activities.NewUpdateInventory(sleeper),
		activities.NewNotifyCustomer(sleeper, eventPublisher),
	)

	// Initialize use cases
	maxAttempts, interval := config.RetryPolicyValues()
	policy := domain.RetryPolicy{MaxAttempts: maxAttempts, Interval: interval}

	invoker := application.NewActivityInvoker(deps.ActivityRegistry, sleeper)
	deps.RunOrchestration = application.NewRunOrchestration(
		deps.InstanceRepository, deps.HistoryStore, invoker, eventPublisher, policy)
	deps.StartOrderProcessing = application.NewStartOrderProcessing(
		deps.InstanceRepository, eventPublisher, deps.RunOrchestration)
	deps.GetOrderStatus = application.NewGetOrderStatus(deps.InstanceRepository)
	deps.ResumeOrchestrations = application.NewResumeOrchestrations(
		deps.InstanceRepository, eventPublisher, deps.RunOrchestration, config.Orchestration.ResumeAfter())

	// Initialize handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(deps.StartOrderProcessing, deps.GetOrderStatus)
	deps.OrderEventHandlers = handlers.NewOrderEventHandlers(deps.StartOrderProcessing)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.EventPublisher != nil {
		if err := d.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
	}

	if d.EventSubscriber != nil {
		if err := d.EventSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event subscriber: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
