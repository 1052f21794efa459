package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ragvault/internal/app"
	"ragvault/internal/model"
)

// IngestWorker consumes queued ingestion jobs one at a time. Prefetch is
// pinned to 1 so a single worker never interleaves embedding traffic from
// two documents against the provider's rate limit.
type IngestWorker struct {
	conn      *amqp.Connection
	service   *app.IngestService
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, service *app.IngestService, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		service:   service,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job model.IngestJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode ingest job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if _, err := w.service.Run(workerCtx, job); err != nil {
					// The pipeline already published the error event;
					// requeueing would replay the whole run.
					log.Printf("worker ingest run %s failed: %v", job.RunID, err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
