package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/orderflow/order-system/order-service/domain"
	"github.com/orderflow/order-system/shared/models"
	"github.com/pkg/errors"
)

// PostgresHistoryStore implements HistoryStore using PostgreSQL. The table
// is append-only; the position column preserves append order per instance.
type PostgresHistoryStore struct {
	db *sqlx.DB
}

// NewPostgresHistoryStore creates a new PostgresHistoryStore
func NewPostgresHistoryStore(db *sqlx.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

// postgresHistoryEntry represents a history entry in database
type postgresHistoryEntry struct {
	ID         string    `db:"id"`
	InstanceID string    `db:"instance_id"`
	Position   int       `db:"position"`
	StepIndex  int       `db:"step_index"`
	Activity   string    `db:"activity"`
	Attempt    int       `db:"attempt"`
	Kind       string    `db:"kind"`
	Input      []byte    `db:"input"`
	Output     []byte    `db:"output"`
	Error      string    `db:"error"`
	Timestamp  time.Time `db:"timestamp"`
}

// Append appends entries to the instance history
func (s *PostgresHistoryStore) Append(ctx context.Context, instanceID models.ID, entries ...*domain.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var lastPosition int
	err = tx.GetContext(ctx, &lastPosition,
		"SELECT COALESCE(MAX(position), 0) FROM orchestration_history WHERE instance_id = $1",
		instanceID.String())
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "failed to get last history position")
	}

	for i, entry := range entries {
		query := `
			INSERT INTO orchestration_history (
				id, instance_id, position, step_index, activity,
				attempt, kind, input, output, error, timestamp
			) VALUES (
				:id, :instance_id, :position, :step_index, :activity,
				:attempt, :kind, :input, :output, :error, :timestamp
			)`

		_, err = tx.NamedExecContext(ctx, query, s.toPostgres(entry, lastPosition+i+1))
		if err != nil {
			return errors.Wrap(err, "failed to insert history entry")
		}
	}

	return tx.Commit()
}

// Load retrieves the full history of an instance in append order
func (s *PostgresHistoryStore) Load(ctx context.Context, instanceID models.ID) ([]*domain.HistoryEntry, error) {
	query := `
		SELECT id, instance_id, position, step_index, activity,
			   attempt, kind, input, output, error, timestamp
		FROM orchestration_history
		WHERE instance_id = $1
		ORDER BY position ASC`

	var pgEntries []postgresHistoryEntry
	err := s.db.SelectContext(ctx, &pgEntries, query, instanceID.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load orchestration history")
	}

	entries := make([]*domain.HistoryEntry, len(pgEntries))
	for i, pgEntry := range pgEntries {
		entry, err := s.toDomain(&pgEntry)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
	}

	return entries, nil
}

// toPostgres converts a domain entry to the postgres model
func (s *PostgresHistoryStore) toPostgres(entry *domain.HistoryEntry, position int) *postgresHistoryEntry {
	return &postgresHistoryEntry{
		ID:         entry.ID.String(),
		InstanceID: entry.InstanceID.String(),
		Position:   position,
		StepIndex:  entry.StepIndex,
		Activity:   entry.Activity,
		Attempt:    entry.Attempt,
		Kind:       string(entry.Kind),
		Input:      entry.Input,
		Output:     entry.Output,
		Error:      entry.Error,
		Timestamp:  entry.Timestamp,
	}
}

// toDomain converts the postgres model to a domain entry
func (s *PostgresHistoryStore) toDomain(pgEntry *postgresHistoryEntry) (*domain.HistoryEntry, error) {
	id, err := models.NewID(pgEntry.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid history entry ID")
	}

	instanceID, err := models.NewID(pgEntry.InstanceID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid instance ID")
	}

	return &domain.HistoryEntry{
		ID:         id,
		InstanceID: instanceID,
		StepIndex:  pgEntry.StepIndex,
		Activity:   pgEntry.Activity,
		Attempt:    pgEntry.Attempt,
		Kind:       domain.StepOutcomeKind(pgEntry.Kind),
		Input:      pgEntry.Input,
		Output:     pgEntry.Output,
		Error:      pgEntry.Error,
		Timestamp:  pgEntry.Timestamp,
	}, nil
}
