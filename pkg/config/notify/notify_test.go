package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaNotify(t *testing.T) {
	w := &recordingWriter{}
	k := newKafka(w)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	k.now = func() time.Time { return at }

	_, err := uuid.Parse(k.Source())
	require.NoError(t, err)

	require.NoError(t, k.Notify(context.Background(), Change{Key: "window.width", Value: int64(1024)}))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "window.width", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, k.Source(), string(msg.Headers[0].Value))

	var got Change
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "window.width", got.Key)
	assert.Equal(t, float64(1024), got.Value)
	assert.Equal(t, k.Source(), got.Source)
	assert.True(t, at.Equal(got.At))

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifyErrors(t *testing.T) {
	k := newKafka(&recordingWriter{err: errors.New("broker down")})
	err := k.Notify(context.Background(), Change{Key: "theme", Value: "dark"})
	assert.ErrorContains(t, err, "broker down")

	k = newKafka(&recordingWriter{})
	err = k.Notify(context.Background(), Change{Key: "bad", Value: func() {}})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.Notify(context.Background(), Change{}))
	assert.NoError(t, n.Close())
}

func TestNewKafkaFlushesEveryChange(t *testing.T) {
	k := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "prefstore.changes"})
	defer k.Close()

	w, ok := k.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.False(t, w.Async)
	assert.Equal(t, 1, w.BatchSize)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Equal(t, "prefstore.changes", w.Topic)
}
