package kafka

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "order.sync.requested", []byte("ord_1"), []byte(`{"order_id":"ord_1"}`))
	require.NoError(t, err)
	require.Len(t, fw.msgs, 1)
	require.Equal(t, "order.sync.requested", fw.msgs[0].Topic)
	require.Equal(t, []byte("ord_1"), fw.msgs[0].Key)
}

func TestProducer_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "t", nil, []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish")
}
