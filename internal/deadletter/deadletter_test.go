package deadletter_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/bookship/internal/deadletter"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	err    error
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewEntry(t *testing.T) {
	entry := deadletter.NewEntry("cs_1", deadletter.StageFulfillment, errors.New("carrier said no"), json.RawMessage(`{"code":"invalid"}`))

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "cs_1", entry.OrderID)
	assert.Equal(t, deadletter.StageFulfillment, entry.Stage)
	assert.Equal(t, "carrier said no", entry.Error)
	assert.False(t, entry.OccurredAt.IsZero())

	other := deadletter.NewEntry("cs_1", deadletter.StageFulfillment, nil, nil)
	assert.NotEqual(t, entry.ID, other.ID)
	assert.Empty(t, other.Error)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := deadletter.NewLogSink(otelzap.New(zap.New(core)))

	entry := deadletter.NewEntry("cs_1", deadletter.StageNotification, errors.New("smtp: 535 auth failed"), nil)
	require.NoError(t, sink.Record(context.Background(), entry))

	require.Equal(t, 1, logs.Len())
	record := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, record.Level)
	fields := record.ContextMap()
	assert.Equal(t, "cs_1", fields["order_id"])
	assert.Equal(t, "notification", fields["stage"])
	assert.Equal(t, "smtp: 535 auth failed", fields["error"])
	assert.NotContains(t, fields, "payload")
}

func TestKafkaSink(t *testing.T) {
	w := &fakeWriter{}
	sink := deadletter.NewKafkaSink(w)

	entry := deadletter.NewEntry("cs_1", deadletter.StageFulfillment, errors.New("rejected"), json.RawMessage(`{"errors":[]}`))
	require.NoError(t, sink.Record(context.Background(), entry))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "cs_1", string(msg.Key))

	var decoded deadletter.Entry
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, entry.ID, decoded.ID)
	assert.Equal(t, deadletter.StageFulfillment, decoded.Stage)
	assert.JSONEq(t, `{"errors":[]}`, string(decoded.Payload))

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteError(t *testing.T) {
	sink := deadletter.NewKafkaSink(&fakeWriter{err: kafka.LeaderNotAvailable})

	err := sink.Record(context.Background(), deadletter.NewEntry("cs_1", deadletter.StageFulfillment, nil, nil))

	require.Error(t, err)
	assert.True(t, errors.Is(err, kafka.LeaderNotAvailable))
}

func TestFallback(t *testing.T) {
	primary := &deadletter.Recorder{Err: errors.New("broker down")}
	secondary := &deadletter.Recorder{}
	sink := deadletter.Fallback{Primary: primary, Secondary: secondary}

	require.NoError(t, sink.Record(context.Background(), deadletter.NewEntry("cs_1", deadletter.StageFulfillment, nil, nil)))
	assert.Len(t, secondary.Entries(), 1)

	secondary.Err = errors.New("disk full")
	err := sink.Record(context.Background(), deadletter.NewEntry("cs_2", deadletter.StageFulfillment, nil, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "disk full")
}

func TestFallback_PrimaryHealthy(t *testing.T) {
	primary := &deadletter.Recorder{}
	secondary := &deadletter.Recorder{}
	sink := deadletter.Fallback{Primary: primary, Secondary: secondary}

	require.NoError(t, sink.Record(context.Background(), deadletter.NewEntry("cs_1", deadletter.StageMetadata, nil, nil)))

	assert.Len(t, primary.Entries(), 1)
	assert.Empty(t, secondary.Entries())
}
