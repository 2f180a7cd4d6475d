// Package audit writes a best-effort trail of applicant changes to postgres.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"recruiting-pipeline/internal/common/logger"
)

const ResourceApplicant = "applicant"

const schemaSQL = `CREATE TABLE IF NOT EXISTS audit_log (
	id            UUID PRIMARY KEY,
	event_type    TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at    TIMESTAMPTZ NOT NULL
)`

const insertSQL = `INSERT INTO audit_log (id, event_type, resource_type, resource_id, details, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// Execer is satisfied by *database.PostgresClient and *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder inserts one audit_log row per event. A nil db makes it a no-op.
type Recorder struct {
	db     Execer
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Recorder)

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Recorder) { r.newID = fn }
}

func NewRecorder(db Execer, log logger.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		db:     db,
		logger: logger.Component(log, "audit"),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewNoop returns a recorder that drops every event.
func NewNoop() *Recorder {
	return &Recorder{logger: logger.NewNoOpLogger()}
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.db != nil
}

// EnsureSchema creates audit_log if it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

// RecordEvent never returns an error; failures are logged as warnings.
func (r *Recorder) RecordEvent(ctx context.Context, eventType, applicantID string, details map[string]interface{}) {
	if !r.Enabled() {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		r.logger.Warn("Failed to encode audit details", map[string]interface{}{
			"event_type":   eventType,
			"applicant_id": applicantID,
			"error":        err.Error(),
		})
		payload = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, insertSQL,
		r.newID(), eventType, ResourceApplicant, applicantID, string(payload), r.now().UTC())
	if err != nil {
		r.logger.Warn("Failed to write audit event", map[string]interface{}{
			"event_type":   eventType,
			"applicant_id": applicantID,
			"error":        err.Error(),
		})
		return
	}
	r.logger.Debug("Audit event recorded", map[string]interface{}{
		"event_type":   eventType,
		"applicant_id": applicantID,
	})
}
