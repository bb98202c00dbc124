package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/acganger/staffing-backend/internal/db"
)

type Entry struct {
	Action       string         `json:"action"`
	ActorID      string         `json:"actor_id"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Sink is an append-only, fire-and-forget audit trail. Implementations must
// never let a recording failure propagate to the caller.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

type PGSink struct {
	Store  *db.Store
	Logger zerolog.Logger
}

func (s *PGSink) Record(ctx context.Context, e Entry) {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		s.Logger.Error().Err(err).Str("action", e.Action).Msg("audit metadata marshal failed")
		metadata = []byte("{}")
	}
	_, err = s.Store.Pool.Exec(ctx, `
		INSERT INTO audit_logs (id, action, actor_id, resource_type, resource_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, uuid.NewString(), e.Action, e.ActorID, e.ResourceType, e.ResourceID, metadata, time.Now().UTC())
	if err != nil {
		s.Logger.Error().Err(err).Str("action", e.Action).Str("resource_id", e.ResourceID).Msg("audit write failed")
	}
}

// NopSink discards entries; used when auditing is disabled and in tests.
type NopSink struct{}

func (NopSink) Record(context.Context, Entry) {}
