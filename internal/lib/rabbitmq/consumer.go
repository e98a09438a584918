package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
)

// ConsumerMessage запускает потребителя очереди queueName с не более чем workers
// одновременными обработчиками. Возвращает управление сразу, разбор идёт
// до отмены ctx или закрытия канала.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, workers int, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	go Dispatch(ctx, delivery, workers, log, handler)
	return nil
}

// Dispatch разбирает поток доставок, ограничивая число параллельных обработчиков.
// Сообщение, обработка которого завершилась ошибкой, возвращается в очередь один раз;
// повторная неудача отбрасывает его. Сообщение, полученное во время остановки,
// возвращается в очередь без обработки.
func Dispatch(ctx context.Context, delivery <-chan amqp.Delivery, workers int, log *slog.Logger, handler func([]byte) error) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					log.Error("failed to return message on shutdown", sl.Err(err))
				}
				return
			}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				settle(d, log, handler)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

func settle(d amqp.Delivery, log *slog.Logger, handler func([]byte) error) {
	if err := handler(d.Body); err != nil {
		requeue := !d.Redelivered
		log.Error("failed to handle message", sl.Err(err), slog.Bool("requeue", requeue))
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
