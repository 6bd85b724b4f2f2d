package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// TurnSink delivers completed turns to the memory strategy workers.
type TurnSink interface {
	Publish(ctx context.Context, rec model.TurnRecord) error
}

// NATSSink publishes turns as JSON on a subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("dinewise-memory"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logx.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logx.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Publish(ctx context.Context, rec model.TurnRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}
	if err := s.conn.Publish(s.subject, b); err != nil {
		return fmt.Errorf("publish turn record: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// StreamSink appends turns to a Redis stream.
type StreamSink struct {
	rdb    redis.Cmdable
	stream string
}

func NewStreamSink(rdb redis.Cmdable, stream string) *StreamSink {
	return &StreamSink{rdb: rdb, stream: stream}
}

func (s *StreamSink) Publish(ctx context.Context, rec model.TurnRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal turn record: %w", err)
	}
	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]any{
			"actor_id":   rec.ActorID,
			"session_id": rec.SessionID,
			"payload":    string(b),
		},
	}).Err()
	if err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}
