package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galebot/galebot/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL. Every pipeline
// decision lands here, NO_TRADE included, as JSONB-backed append-only rows.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

var _ domain.AuditStore = (*AuditStore)(nil)

// Append writes one audit entry. The detail map is stored as JSONB.
func (s *AuditStore) Append(ctx context.Context, e domain.AuditEntry) error {
	detailJSON, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit detail: %w", err)
	}

	const query = `
		INSERT INTO audit_log (id, event_id, stage, decision, rationale, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.pool.Exec(ctx, query,
		e.ID, e.EventID, e.Stage, e.Decision, e.Rationale, detailJSON, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append audit entry for %s: %w", e.EventID, err)
	}
	return nil
}

// ListByEvent returns the decision trail of one event, oldest first.
func (s *AuditStore) ListByEvent(ctx context.Context, eventID string, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, event_id, stage, decision, rationale, detail, created_at
		FROM audit_log
		WHERE event_id = $1
		ORDER BY created_at`
	args := []any{eventID}
	query, args = paginate(query, args, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit entries for %s: %w", eventID, err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var detailJSON []byte

		if err := rows.Scan(&e.ID, &e.EventID, &e.Stage, &e.Decision, &e.Rationale, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list audit entries rows: %w", err)
	}
	return out, nil
}
