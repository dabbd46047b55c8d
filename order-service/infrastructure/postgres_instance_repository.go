package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/models"
	"github.com/pkg/errors"
)

// PostgresInstanceRepository implements InstanceRepository using PostgreSQL
type PostgresInstanceRepository struct {
	db *sqlx.DB
}

// NewPostgresInstanceRepository creates a new PostgresInstanceRepository
func NewPostgresInstanceRepository(db *sqlx.DB) *PostgresInstanceRepository {
	return &PostgresInstanceRepository{db: db}
}

// postgresInstance represents an orchestration instance in database
type postgresInstance struct {
	ID            string     `db:"id"`
	Name          string     `db:"name"`
	Input         []byte     `db:"input"`
	Status        string     `db:"status"`
	CustomStatus  string     `db:"custom_status"`
	Result        []byte     `db:"result"`
	FailureReason string     `db:"failure_reason"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
	Version       int        `db:"version"`
}

// Save inserts a new instance or updates an existing one. Updates use
// optimistic locking on the version column.
func (r *PostgresInstanceRepository) Save(ctx context.Context, instance *domain.OrchestrationInstance) error {
	if instance.Version.Value == 1 {
		return r.insertInstance(ctx, instance)
	}
	return r.updateInstance(ctx, instance)
}

// insertInstance inserts a new instance
func (r *PostgresInstanceRepository) insertInstance(ctx context.Context, instance *domain.OrchestrationInstance) error {
	query := `
		INSERT INTO orchestration_instances (
			id, name, input, status, custom_status, result,
			failure_reason, created_at, updated_at, version
		) VALUES (
			:id, :name, :input, :status, :custom_status, :result,
			:failure_reason, :created_at, :updated_at, :version
		)`

	pgInstance, err := r.toPostgres(instance)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, query, pgInstance)
	if err != nil {
		return errors.Wrap(err, "failed to insert orchestration instance")
	}

	return nil
}

// updateInstance updates an existing instance
func (r *PostgresInstanceRepository) updateInstance(ctx context.Context, instance *domain.OrchestrationInstance) error {
	query := `
		UPDATE orchestration_instances
		SET status = :status, custom_status = :custom_status, result = :result,
			failure_reason = :failure_reason, updated_at = :updated_at, version = :version
		WHERE id = :id AND version = :old_version`

	var result []byte
	if instance.Result != nil {
		encoded, err := json.Marshal(instance.Result)
		if err != nil {
			return errors.Wrap(err, "failed to marshal instance result")
		}
		result = encoded
	}

	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":             instance.ID.String(),
		"status":         string(instance.Status),
		"custom_status":  instance.CustomStatus,
		"result":         result,
		"failure_reason": instance.FailureReason,
		"updated_at":     instance.Timestamps.UpdatedAt,
		"version":        instance.Version.Value,
		"old_version":    instance.Version.Value - 1, // Optimistic locking
	})
	if err != nil {
		return errors.Wrap(err, "failed to update orchestration instance")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read update result")
	}

	if affected == 0 {
		return errors.Errorf("concurrency conflict updating instance %s at version %d",
			instance.ID.String(), instance.Version.Value)
	}

	return nil
}

// FindByID finds an instance by ID
func (r *PostgresInstanceRepository) FindByID(ctx context.Context, id models.ID) (*domain.OrchestrationInstance, error) {
	query := `
		SELECT id, name, input, status, custom_status, result,
			   failure_reason, created_at, updated_at, deleted_at, version
		FROM orchestration_instances
		WHERE id = $1 AND deleted_at IS NULL`

	var pgInstance postgresInstance
	err := r.db.GetContext(ctx, &pgInstance, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Instance not found
		}
		return nil, errors.Wrap(err, "failed to find orchestration instance")
	}

	return r.toDomain(&pgInstance)
}

// FindRunningBefore finds running instances last updated before the cutoff
func (r *PostgresInstanceRepository) FindRunningBefore(ctx context.Context, cutoff time.Time) ([]*domain.OrchestrationInstance, error) {
	query := `
		SELECT id, name, input, status, custom_status, result,
			   failure_reason, created_at, updated_at, deleted_at, version
		FROM orchestration_instances
		WHERE status = $1 AND updated_at < $2 AND deleted_at IS NULL
		ORDER BY updated_at ASC`

	var pgInstances []postgresInstance
	err := r.db.SelectContext(ctx, &pgInstances, query, string(domain.InstanceStatusRunning), cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find running orchestration instances")
	}

	instances := make([]*domain.OrchestrationInstance, len(pgInstances))
	for i, pgInstance := range pgInstances {
		instance, err := r.toDomain(&pgInstance)
		if err != nil {
			return nil, err
		}
		instances[i] = instance
	}

	return instances, nil
}

// toPostgres converts a domain instance to the postgres model
func (r *PostgresInstanceRepository) toPostgres(instance *domain.OrchestrationInstance) (*postgresInstance, error) {
	input, err := json.Marshal(instance.Input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal instance input")
	}

	var result []byte
	if instance.Result != nil {
		result, err = json.Marshal(instance.Result)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal instance result")
		}
	}

	return &postgresInstance{
		ID:            instance.ID.String(),
		Name:          instance.Name,
		Input:         input,
		Status:        string(instance.Status),
		CustomStatus:  instance.CustomStatus,
		Result:        result,
		FailureReason: instance.FailureReason,
		CreatedAt:     instance.Timestamps.CreatedAt,
		UpdatedAt:     instance.Timestamps.UpdatedAt,
		DeletedAt:     instance.Timestamps.DeletedAt,
		Version:       instance.Version.Value,
	}, nil
}

// toDomain converts the postgres model to a domain instance
func (r *PostgresInstanceRepository) toDomain(pgInstance *postgresInstance) (*domain.OrchestrationInstance, error) {
	id, err := models.NewID(pgInstance.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid instance ID")
	}

	var input domain.OrderPayload
	if err := json.Unmarshal(pgInstance.Input, &input); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal instance input")
	}

	var result *domain.OrderResult
	if len(pgInstance.Result) > 0 {
		result = &domain.OrderResult{}
		if err := json.Unmarshal(pgInstance.Result, result); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal instance result")
		}
	}

	return &domain.OrchestrationInstance{
		ID:            id,
		Name:          pgInstance.Name,
		Input:         input,
		Status:        domain.InstanceStatus(pgInstance.Status),
		CustomStatus:  pgInstance.CustomStatus,
		Result:        result,
		FailureReason: pgInstance.FailureReason,
		Timestamps: models.Timestamps{
			CreatedAt: pgInstance.CreatedAt,
			UpdatedAt: pgInstance.UpdatedAt,
			DeletedAt: pgInstance.DeletedAt,
		},
		Version: models.Version{Value: pgInstance.Version},
	}, nil
}
