package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type panicSink struct{}

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Record(_ context.Context, evt Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, evt)
	return nil
}

func (panicSink) Record(context.Context, Event) error { panic("boom") }

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := &recordingSink{err: errors.New("db down")}
	rec := NewRecorder(sink, zap.New(core))

	rec.Log(context.Background(), Event{TenantID: "t1", Action: "leave.request.approve", EntityID: "r1"})

	assert.Empty(t, sink.events)
	assert.Equal(t, 1, logs.FilterMessage("audit leave.request.approve failed").Len())
}

func TestRecorderSurvivesPanickingSink(t *testing.T) {
	rec := NewRecorder(panicSink{}, nil)
	assert.NotPanics(t, func() {
		rec.Log(context.Background(), Event{Action: "timesheet.submit"})
	})
}

func TestRecorderRecords(t *testing.T) {
	sink := &recordingSink{}
	NewRecorder(sink, nil).Log(context.Background(), Event{Action: "timesheet.create"})
	var nilRecorder *Recorder
	nilRecorder.Log(context.Background(), Event{Action: "ignored"})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "timesheet.create", sink.events[0].Action)
}

func TestMarshalOptional(t *testing.T) {
	b, err := marshalOptional(nil)
	assert.NoError(t, err)
	assert.Nil(t, b)

	b, err = marshalOptional(map[string]string{"status": "draft"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":"draft"}`, string(b))
}
