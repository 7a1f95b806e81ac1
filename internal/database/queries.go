package database

import (
	"context"
	"encoding/json"
	"time"
)

// InteractionStateRow is one persisted interaction-state envelope
type InteractionStateRow struct {
	InteractionID string          `db:"interaction_id"`
	Version       int             `db:"version"`
	Env           string          `db:"env"`
	SubmittedAt   int64           `db:"submitted_at"`
	Payload       json.RawMessage `db:"payload"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// UpsertInteractionState writes an envelope, replacing any previous version
// for the same interaction id
func (db *DB) UpsertInteractionState(ctx context.Context, row *InteractionStateRow) error {
	query := `
		INSERT INTO interaction_states (interaction_id, version, env, submitted_at, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (interaction_id)
		DO UPDATE SET version = $2, payload = $5, updated_at = NOW()
	`
	_, err := db.ExecContext(ctx, query,
		row.InteractionID,
		row.Version,
		row.Env,
		row.SubmittedAt,
		row.Payload,
	)
	return err
}

// ListInteractionStates returns all envelopes, most recent first
func (db *DB) ListInteractionStates(ctx context.Context) ([]InteractionStateRow, error) {
	var rows []InteractionStateRow
	query := `
		SELECT interaction_id, version, env, submitted_at, payload, updated_at
		FROM interaction_states
		ORDER BY submitted_at DESC
	`
	err := db.SelectContext(ctx, &rows, query)
	return rows, err
}

// DeleteAllInteractionStates clears the table (explicit user reset)
func (db *DB) DeleteAllInteractionStates(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM interaction_states`)
	return err
}
