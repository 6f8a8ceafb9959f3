package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

type recordingAck struct {
	acks      int
	naks      int
	nakDelays []time.Duration
}

func (a *recordingAck) Ack(...nats.AckOpt) error {
	a.acks++
	return nil
}

func (a *recordingAck) NakWithDelay(delay time.Duration, _ ...nats.AckOpt) error {
	a.naks++
	a.nakDelays = append(a.nakDelays, delay)
	return nil
}

func TestNATSClient_Deliver(t *testing.T) {
	client := NewNATSClient("nats://localhost:4222", "betledger")

	t.Run("acks handled message", func(t *testing.T) {
		ack := &recordingAck{}
		var got []byte
		client.deliver("feed.match.result", []byte("payload"), ack, func(_ context.Context, data []byte) error {
			got = data
			return nil
		})

		assert.Equal(t, []byte("payload"), got)
		assert.Equal(t, 1, ack.acks)
		assert.Zero(t, ack.naks)
	})

	t.Run("naks failed message with delay and never acks it", func(t *testing.T) {
		ack := &recordingAck{}
		failing := func(context.Context, []byte) error { return errors.New("store unavailable") }

		for i := 0; i < 5; i++ {
			client.deliver("feed.match.result", []byte("payload"), ack, failing)
		}

		assert.Zero(t, ack.acks)
		assert.Equal(t, 5, ack.naks)
		for _, delay := range ack.nakDelays {
			assert.Equal(t, client.redeliveryDelay, delay)
		}
	})
}
