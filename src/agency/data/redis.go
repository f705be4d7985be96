package data

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/stake-plus/cat-agency/src/agency/types"
)

// ConnectRedis parses url and returns a client. An empty url means Redis is
// not configured and returns a nil client.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// EventStream appends mission events to a Redis stream.
type EventStream struct {
	rdb    *redis.Client
	stream string
}

func NewEventStream(rdb *redis.Client, stream string) *EventStream {
	return &EventStream{rdb: rdb, stream: stream}
}

func (s *EventStream) Publish(ctx context.Context, ev types.MissionEvent) error {
	values := map[string]interface{}{
		"id":         ev.ID,
		"type":       ev.Type,
		"mission_id": ev.MissionID,
		"time":       ev.At.Unix(),
	}
	if ev.AgentID != nil {
		values["agent_id"] = strconv.FormatUint(*ev.AgentID, 10)
	}
	if ev.From != "" {
		values["from"] = string(ev.From)
	}
	if ev.To != "" {
		values["to"] = string(ev.To)
	}

	_, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}).Result()
	return err
}
