package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog is one row of the audit_logs trail. Actions follow the
// "module:verb" convention (orders:void, invoicing:issue) so the trail can
// be filtered per module; ActorID is zero for worker-initiated actions.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to the audit_logs table. Writes are best-effort at the
// call sites; a failed audit row never rolls back the business change.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

const auditInsert = `
	INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Record persists the log entry. A zero At is stamped with the current time.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx, auditInsert, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}
