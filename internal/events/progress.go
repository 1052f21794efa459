package events

import (
	"context"
	"encoding/json"
	"log"

	redisv9 "github.com/redis/go-redis/v9"

	"ragvault/internal/ingest"
)

// Publisher delivers ingestion progress events over redis pub/sub, one
// channel per run. Pub/sub has no replay: a subscriber that connects after
// the run started misses earlier events, and events for a run nobody watches
// go nowhere. Both are by contract; the pipeline treats the transport as
// fire-and-forget.
type Publisher struct {
	client *redisv9.Client
}

func NewPublisher(client *redisv9.Client) *Publisher {
	return &Publisher{client: client}
}

// Reporter returns an ingest.Reporter that publishes every event for runID.
// Publish failures are logged and dropped so a broken transport never stalls
// a run.
func (p *Publisher) Reporter(ctx context.Context, runID string) ingest.Reporter {
	channel := channelName(runID)
	return ingest.ReporterFunc(func(event ingest.Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("marshal progress event failed: %v", err)
			return
		}
		if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
			log.Printf("publish progress event failed: %v", err)
		}
	})
}

// Subscribe returns a channel of events for runID. The channel closes when
// ctx is done or the subscription drops. Call the returned func to release
// the subscription.
func (p *Publisher) Subscribe(ctx context.Context, runID string) (<-chan ingest.Event, func()) {
	sub := p.client.Subscribe(ctx, channelName(runID))
	out := make(chan ingest.Event, 16)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event ingest.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("decode progress event failed: %v", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return out, cancel
}

func channelName(runID string) string {
	return "ingest:progress:" + runID
}
