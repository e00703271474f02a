package events

import (
	"context"
	"encoding/json"
	"fmt"

	rediscommon "github.com/dsocial118/SISOC-sub000/common/redis"
	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/go-redis/redis/v8"
)

// DefaultStream is the Redis Stream carrying committed case events.
const DefaultStream = "vaac:case_events"

// StreamPublisher XADDs every event to a Redis Stream, one entry per event.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, events []domain.CaseEvent) error {
	for i := range events {
		e := &events[i]
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.Seq, err)
		}
		_, err = rediscommon.PublishToStream(ctx, p.client, p.stream, map[string]interface{}{
			"seq":        e.Seq,
			"kind":       string(e.Kind),
			"program_id": e.ProgramID,
			"data":       data,
		})
		if err != nil {
			return fmt.Errorf("xadd event %d to %s: %w", e.Seq, p.stream, err)
		}
	}
	return nil
}

// decodeStreamEvent reads back an entry written by StreamPublisher.
func decodeStreamEvent(values map[string]interface{}) (*domain.CaseEvent, error) {
	raw, ok := values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("stream entry has no data field")
	}
	var e domain.CaseEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}
