package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakePublisher) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublishMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		pub := &fakePublisher{}
		err := PublishMessage(pub, Exchange, "email", map[string]int{"id": 1})
		require.NoError(t, err)

		require.Len(t, pub.sent, 1)
		assert.Equal(t, Exchange, pub.sent[0].exchange)
		assert.Equal(t, "email", pub.sent[0].key)
		assert.Equal(t, "application/json", pub.sent[0].msg.ContentType)
		assert.Equal(t, amqp.Persistent, pub.sent[0].msg.DeliveryMode)
		assert.JSONEq(t, `{"id":1}`, string(pub.sent[0].msg.Body))
	})

	t.Run("marshal error", func(t *testing.T) {
		pub := &fakePublisher{}
		err := PublishMessage(pub, Exchange, "email", make(chan int))
		require.Error(t, err)
		assert.Empty(t, pub.sent)
	})

	t.Run("publish error", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("channel closed")}
		err := PublishMessage(pub, Exchange, "email", "x")
		assert.ErrorContains(t, err, "channel closed")
	})
}

func TestEmailSender_Send(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		pub := &fakePublisher{}
		sender := NewEmailSender(pub, EmailQueue, newNoopLogger())

		ok := sender.Send(context.Background(), "user@uni.ru", "Verify", "<p>hi</p>", true)
		require.True(t, ok)
		require.Len(t, pub.sent, 1)
		assert.Equal(t, EmailQueue.RoutingKey, pub.sent[0].key)

		var got models.Email
		require.NoError(t, json.Unmarshal(pub.sent[0].msg.Body, &got))
		assert.Equal(t, models.Email{To: "user@uni.ru", Subject: "Verify", Body: "<p>hi</p>", IsHTML: true}, got)
	})

	t.Run("broker failure reported as false", func(t *testing.T) {
		sender := NewEmailSender(&fakePublisher{err: amqp.ErrClosed}, EmailQueue, newNoopLogger())
		assert.False(t, sender.Send(context.Background(), "user@uni.ru", "s", "b", false))
	})

	t.Run("cancelled context", func(t *testing.T) {
		pub := &fakePublisher{}
		sender := NewEmailSender(pub, EmailQueue, newNoopLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, sender.Send(ctx, "user@uni.ru", "s", "b", false))
		assert.Empty(t, pub.sent)
	})
}

type ackCall struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
	done  chan struct{}
}

func (f *fakeAcknowledger) record(c ackCall) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.record(ackCall{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.record(ackCall{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.record(ackCall{tag: tag, requeue: requeue})
	return nil
}

func TestDispatch(t *testing.T) {
	ack := &fakeAcknowledger{done: make(chan struct{}, 3)}
	delivery := make(chan amqp.Delivery, 3)
	delivery <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	delivery <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("fail")}
	delivery <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("fail"), Redelivered: true}
	close(delivery)

	handler := func(body []byte) error {
		if string(body) == "fail" {
			return errors.New("smtp down")
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Dispatch(ctx, delivery, 2, newNoopLogger(), handler)

	for range 3 {
		select {
		case <-ack.done:
		case <-ctx.Done():
			t.Fatal("timeout waiting for acknowledgements")
		}
	}

	ack.mu.Lock()
	defer ack.mu.Unlock()
	byTag := map[uint64]ackCall{}
	for _, c := range ack.calls {
		byTag[c.tag] = c
	}
	assert.True(t, byTag[1].ack)
	assert.False(t, byTag[2].ack)
	assert.True(t, byTag[2].requeue)
	assert.False(t, byTag[3].ack)
	assert.False(t, byTag[3].requeue)
}

func TestDispatch_StopsWhileWorkersBusy(t *testing.T) {
	ack := &fakeAcknowledger{done: make(chan struct{}, 2)}
	delivery := make(chan amqp.Delivery, 2)
	delivery <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("slow")}
	delivery <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("waiting")}

	release := make(chan struct{})
	handler := func([]byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		Dispatch(ctx, delivery, 1, newNoopLogger(), handler)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return len(delivery) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not stop while the worker was busy")
	}
	close(release)

	for range 2 {
		select {
		case <-ack.done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for acknowledgements")
		}
	}

	ack.mu.Lock()
	defer ack.mu.Unlock()
	byTag := map[uint64]ackCall{}
	for _, c := range ack.calls {
		byTag[c.tag] = c
	}
	assert.True(t, byTag[1].ack)
	assert.False(t, byTag[2].ack)
	assert.True(t, byTag[2].requeue, "unprocessed message goes back to the queue")
}

func TestNotificationQueues(t *testing.T) {
	queues := NotificationQueues()
	require.NotEmpty(t, queues)

	seen := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
		seen[q.QueueName] = true
	}
	assert.True(t, seen[EmailQueue.QueueName])
}
