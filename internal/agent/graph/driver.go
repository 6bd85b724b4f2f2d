package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

const (
	// DefaultChunkSize is the number of characters per streamed chunk.
	DefaultChunkSize = 500
	// FallbackMessage is streamed when a turn ends without presentable text.
	FallbackMessage = "I apologize, but I wasn't able to generate a response. Please try again."
	// ErrorChunkMessage is the single chunk streamed when a turn fails.
	ErrorChunkMessage = "Sorry, something went wrong while preparing your answer. Please try again."
)

// TurnRequest is the entry-point payload of one user turn.
type TurnRequest struct {
	Prompt         string `json:"prompt"`
	CustomerName   string `json:"customer_name,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Chunk is one streamed piece of a turn's answer. A failed turn yields a
// single chunk with Error set.
type Chunk struct {
	ThreadID string `json:"thread_id"`
	Content  string `json:"content,omitempty"`
	Error    string `json:"error,omitempty"`
	Status   int    `json:"status,omitempty"`
}

type DriverConfig struct {
	ChunkSize   int
	TurnTimeout time.Duration
	Topology    model.Topology
	Metrics     *metrics.Agent
}

// Driver runs one graph invocation per turn and streams the final text.
type Driver struct {
	runner Runner
	cfg    DriverConfig
}

func NewDriver(runner Runner, cfg DriverConfig) *Driver {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Driver{runner: runner, cfg: cfg}
}

// Stream starts the turn and returns its chunks. The caller must drain or
// close the reader.
func (d *Driver) Stream(ctx context.Context, req TurnRequest) *schema.StreamReader[Chunk] {
	threadID := strings.TrimSpace(req.ConversationID)
	if threadID == "" {
		threadID = uuid.NewString()
	}
	sr, sw := schema.Pipe[Chunk](4)

	go func() {
		defer sw.Close()
		start := time.Now()
		status := "ok"
		defer func() {
			if r := recover(); r != nil {
				logx.Error().Str("thread_id", threadID).Msgf("turn panic recovered: %v", r)
				status = "error"
				sw.Send(Chunk{ThreadID: threadID, Error: ErrorChunkMessage, Status: 500}, nil)
			}
			d.cfg.Metrics.ObserveTurn(string(d.cfg.Topology), status, time.Since(start))
		}()

		text, err := d.run(ctx, threadID, req)
		if err != nil {
			status = "error"
			logx.Error().Err(err).Str("thread_id", threadID).Msg("Turn failed")
			sw.Send(Chunk{ThreadID: threadID, Error: ErrorChunkMessage, Status: errx.StatusOf(err)}, nil)
			return
		}
		for _, part := range splitChunks(text, d.cfg.ChunkSize) {
			if closed := sw.Send(Chunk{ThreadID: threadID, Content: part}, nil); closed {
				logx.Debug().Str("thread_id", threadID).Msg("Stream reader closed early")
				return
			}
		}
	}()
	return sr
}

func (d *Driver) run(ctx context.Context, threadID string, req TurnRequest) (string, error) {
	if d.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.TurnTimeout)
		defer cancel()
	}
	out, err := d.runner.Invoke(ctx, model.TurnInput{
		ThreadID:     threadID,
		CustomerName: req.CustomerName,
		Prompt:       req.Prompt,
	})
	if err != nil {
		return "", fmt.Errorf("invoke graph: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return FallbackMessage, nil
	}
	return strings.TrimSpace(out.Content), nil
}

// Collect drains a turn stream into the full answer, or the error chunk's
// message as an error.
func Collect(sr *schema.StreamReader[Chunk]) (string, error) {
	defer sr.Close()
	var b strings.Builder
	for {
		c, err := sr.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return b.String(), err
		}
		if c.Error != "" {
			return b.String(), errors.New(c.Error)
		}
		b.WriteString(c.Content)
	}
}

// splitChunks cuts s into pieces of at most size runes.
func splitChunks(s string, size int) []string {
	r := []rune(s)
	if len(r) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(r)+size-1)/size)
	for i := 0; i < len(r); i += size {
		end := i + size
		if end > len(r) {
			end = len(r)
		}
		chunks = append(chunks, string(r[i:end]))
	}
	return chunks
}
