package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/metrics"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackPoll        = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	publishTimeout      = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type txDatabase interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type broker interface {
	Ping(context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicSender is the slice of *pubsub.Publisher the relay needs, narrowed so
// tests can stand in for the broker.
type topicSender interface {
	Send(ctx context.Context, msg *gcppubsub.Message) error
}

type senderFactory func(topic string) topicSender

type RelayParams struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          txDatabase
	Broker      broker
	Events      eventStore
	DeadLetters deadLetterStore
	Resolver    eventResolver
	Metrics     *metrics.PublisherMetrics
	Senders     senderFactory
}

// Relay drains outbox_events onto Pub/Sub. Rows are locked, published and
// marked inside one transaction so a crash never double-marks a row.
type Relay struct {
	logg        *logger.Logger
	db          txDatabase
	broker      broker
	events      eventStore
	deadLetters deadLetterStore
	resolver    eventResolver
	metrics     *metrics.PublisherMetrics
	senders     senderFactory
	cache       *publisherCache

	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case p.Events == nil:
		return nil, errors.New("outbox repository is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case p.Resolver == nil:
		return nil, errors.New("event registry is required")
	}

	senders := p.Senders
	var cache *publisherCache
	if senders == nil {
		cache = &publisherCache{broker: p.Broker, pubs: map[string]*gcppubsub.Publisher{}}
		senders = cache.sender
	}

	r := &Relay{
		logg:        p.Logger,
		db:          p.DB,
		broker:      p.Broker,
		events:      p.Events,
		deadLetters: p.DeadLetters,
		resolver:    p.Resolver,
		metrics:     p.Metrics,
		senders:     senders,
		cache:       cache,
		batchSize:   p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		poll:        time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if r.batchSize <= 0 {
		r.batchSize = fallbackBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = fallbackMaxAttempts
	}
	if r.poll <= 0 {
		r.poll = fallbackPoll
	}
	return r, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one; an empty batch sleeps one poll interval; a failed batch backs
// off exponentially up to backoffCeiling.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": r.db.Ping,
		"pubsub":   r.broker.Ping,
	} {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	delay := r.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			delay = min(delay*2, backoffCeiling)
		case n > 0:
			delay = r.poll
			continue
		default:
			delay = r.poll
		}

		if err := sleepCtx(ctx, jittered(delay)); err != nil {
			return err
		}
	}
}

// drain handles one batch and reports how many rows it touched.
func (r *Relay) drain(ctx context.Context) (int, error) {
	var handled int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, row := range rows {
			if err := r.relayOne(ctx, tx, row); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	return handled, err
}

// relayOne returns an error only when bookkeeping fails; publish failures are
// recorded on the row and do not stop the batch.
func (r *Relay) relayOne(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	resolved, err := r.resolver.Resolve(row)
	if err != nil {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err, r.fields(row, nil))
	}
	fields := r.fields(row, resolved)

	started := r.now()
	sendErr := r.send(ctx, row, resolved)
	r.metrics.ObserveDuration(string(row.EventType), r.now().Sub(started))

	if sendErr == nil {
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.IncPublished(string(row.EventType))
		r.logg.Info(r.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	r.metrics.IncFailed(string(row.EventType))

	var nonRetryable registry.NonRetryableError
	if errors.As(sendErr, &nonRetryable) {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr, fields)
	}

	attempt := row.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= r.maxAttempts {
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", sendErr), fields)
	}

	logCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", sendErr.Error())
	r.logg.Warn(logCtx, "outbox publish failed, will retry")
	if err := r.events.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, err)
	}
	return nil
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	logCtx := r.logg.WithField(r.logg.WithFields(ctx, fields), "error", cause.Error())
	r.logg.Warn(logCtx, "outbox event moved to dlq")

	entry := row.DeadLetter(reason, cause.Error(), r.now())
	if err := r.deadLetters.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

// send publishes with the aggregate id as ordering key so consumers observe
// events for one ledger entry or order in commit order.
func (r *Relay) send(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	sender := r.senders(topic)
	if sender == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return sender.Send(sendCtx, msg)
}

func (r *Relay) fields(row models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	f := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if resolved != nil {
		f["topic"] = resolved.Descriptor.Topic
		if resolved.Envelope.EventID != "" {
			f["event_id"] = resolved.Envelope.EventID
		}
	}
	if row.LastError != nil {
		f["last_error"] = *row.LastError
	}
	return f
}

// Close flushes and stops every publisher the relay opened.
func (r *Relay) Close() {
	if r.cache != nil {
		r.cache.stop()
	}
}

// publisherCache keeps one Pub/Sub publisher per topic; each publisher owns
// background goroutines and batching buffers.
type publisherCache struct {
	broker broker
	pubs   map[string]*gcppubsub.Publisher
}

func (c *publisherCache) sender(topic string) topicSender {
	pub, ok := c.pubs[topic]
	if !ok {
		pub = c.broker.Publisher(topic)
		if pub == nil {
			return nil
		}
		pub.EnableMessageOrdering = true
		c.pubs[topic] = pub
	}
	return gcpSender{pub: pub}
}

func (c *publisherCache) stop() {
	for _, pub := range c.pubs {
		pub.Stop()
	}
}

type gcpSender struct {
	pub *gcppubsub.Publisher
}

func (s gcpSender) Send(ctx context.Context, msg *gcppubsub.Message) error {
	_, err := s.pub.Publish(ctx, msg).Get(ctx)
	if err != nil && msg.OrderingKey != "" {
		// an ordering key is paused after a failure until resumed
		s.pub.ResumePublish(msg.OrderingKey)
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func jittered(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}
