package audit

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"workforce/internal/platform/querier"
	"workforce/internal/requestctx"
)

type Event struct {
	TenantID    string
	ActorUserID string
	Action      string
	Entity      string
	EntityID    string
	Before      any
	After       any
}

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, evt Event) error
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, evt Event) error {
	beforeJSON, err := marshalOptional(evt.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalOptional(evt.After)
	if err != nil {
		return err
	}

	meta := requestctx.FromContext(ctx)
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (tenant_id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, client_ip)
    VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,NULLIF($9,''))
  `, evt.TenantID, evt.ActorUserID, evt.Action, evt.Entity, evt.EntityID, beforeJSON, afterJSON, meta.RequestID, meta.ClientIP)
	return err
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Recorder emits audit events without ever failing the caller: sink errors
// are logged and dropped.
type Recorder struct {
	sink   Sink
	logger *zap.Logger
}

func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger}
}

func (r *Recorder) Log(ctx context.Context, evt Event) {
	if r == nil || r.sink == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("audit sink panicked", zap.String("action", evt.Action), zap.Any("panic", p))
		}
	}()
	if err := r.sink.Record(ctx, evt); err != nil {
		r.logger.Warn("audit "+evt.Action+" failed",
			zap.String("tenantId", evt.TenantID),
			zap.String("entityId", evt.EntityID),
			zap.Error(err))
	}
}
