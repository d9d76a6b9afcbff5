package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

// Consumer polls guide-job records and runs them through the guide handler
// with a bounded worker pool.
type Consumer struct {
	client  *kgo.Client
	handler *GuideJobHandler
	groupID string
	topic   string
	workers chan struct{}
}

// NewConsumer constructs a Consumer joined to the given group. maxConcurrent
// caps how many jobs run at once per worker process; each job makes model
// calls, so this stays small.
func NewConsumer(brokers []string, groupID string, handler *GuideJobHandler, maxConcurrent int) (*Consumer, error) {
	slog.Info("creating redpanda consumer", slog.Any("brokers", brokers), slog.String("group_id", groupID))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	tempClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("temp client: %w", err)
	}
	if err := createTopicIfNotExists(context.Background(), tempClient, TopicGuideJobs, 1, 1); err != nil {
		slog.Warn("failed to create topic, it may already exist",
			slog.String("topic", TopicGuideJobs),
			slog.Any("error", err))
	}
	tempClient.Close()

	kotelService := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(TopicGuideJobs),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.DialTimeout(10*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.HeartbeatInterval(3*time.Second),
		kgo.FetchMaxWait(5*time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redpanda consumer client: %w", err)
	}

	return &Consumer{
		client:  client,
		handler: handler,
		groupID: groupID,
		topic:   TopicGuideJobs,
		workers: make(chan struct{}, maxConcurrent),
	}, nil
}

// Start polls records until the context is cancelled. Each record is handled
// on its own goroutine, bounded by the worker semaphore, and marked for
// commit only after handling returns.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("starting redpanda consumer",
		slog.String("group_id", c.groupID),
		slog.String("topic", c.topic),
		slog.Int("max_concurrent", cap(c.workers)))

	var wg sync.WaitGroup
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.Any("error", err))
		})
		fetches.EachRecord(func(record *kgo.Record) {
			select {
			case c.workers <- struct{}{}:
			case <-ctx.Done():
				return
			}
			wg.Add(1)
			go func(rec *kgo.Record) {
				defer wg.Done()
				defer func() { <-c.workers }()
				c.processRecord(ctx, rec)
				c.client.MarkCommitRecords(rec)
			}(record)
		})
	}

	wg.Wait()
	slog.Info("redpanda consumer stopped", slog.String("group_id", c.groupID))
	return ctx.Err()
}

// processRecord decodes and handles one job. Handler failures are recorded
// on the job row; the record is still committed, jobs are not redelivered.
func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) {
	var payload domain.GuideJobPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		slog.Error("malformed guide job record, skipping",
			slog.String("topic", record.Topic),
			slog.Int64("offset", record.Offset),
			slog.Any("error", err))
		return
	}
	if err := c.handler.Handle(ctx, payload); err != nil {
		slog.Error("guide job failed",
			slog.String("job_id", payload.JobID),
			slog.String("kind", string(payload.Kind)),
			slog.Any("error", err))
	}
}

// Close closes the underlying client.
func (c *Consumer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
