package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/metrics"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox/registry"
)

func TestDrainContinuesAfterTransientFailure(t *testing.T) {
	first, second := transferRow(t, 0), transferRow(t, 0)
	store := &fakeEventStore{rows: []models.OutboxEvent{first, second}}
	sender := &fakeSender{errs: []error{errors.New("unavailable"), nil}}
	reg := prometheus.NewRegistry()
	relay := newTestRelay(t, store, &fakeDeadLetters{}, sender, reg)

	n, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{first.ID}, store.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, store.published)
	assert.Empty(t, store.terminal)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, second.AggregateID.String(), sender.sent[1].OrderingKey)
	assert.Equal(t, string(enums.EventCreditTransferred), sender.sent[1].Attributes["event_type"])

	assert.Equal(t, 1, counterValue(t, reg, "outbox_published_total"))
	assert.Equal(t, 1, counterValue(t, reg, "outbox_publish_failures_total"))
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	row := transferRow(t, 0)
	row.AggregateType = enums.AggregateMealOrder
	store := &fakeEventStore{rows: []models.OutboxEvent{row}}
	dlq := &fakeDeadLetters{}
	sender := &fakeSender{}
	relay := newTestRelay(t, store, dlq, sender, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
	assert.Equal(t, row.ID, dlq.entries[0].EventID)
	assert.Equal(t, []uuid.UUID{row.ID}, store.terminal)
	assert.Empty(t, sender.sent, "unresolvable rows are never published")
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	row := transferRow(t, 2)
	store := &fakeEventStore{rows: []models.OutboxEvent{row}}
	dlq := &fakeDeadLetters{}
	relay := newTestRelay(t, store, dlq, &fakeSender{errs: []error{errors.New("deadline exceeded")}}, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	require.NotNil(t, dlq.entries[0].ErrorMessage)
	assert.Contains(t, *dlq.entries[0].ErrorMessage, "max publish attempts")
	assert.Empty(t, store.failed)
}

func TestDrainDeadLettersWhenTopicHasNoPublisher(t *testing.T) {
	row := transferRow(t, 0)
	store := &fakeEventStore{rows: []models.OutboxEvent{row}}
	dlq := &fakeDeadLetters{}
	relay := newTestRelay(t, store, dlq, nil, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
}

func TestDrainSurfacesBookkeepingErrors(t *testing.T) {
	store := &fakeEventStore{
		rows:       []models.OutboxEvent{transferRow(t, 0)},
		publishErr: errors.New("connection reset"),
	}
	relay := newTestRelay(t, store, &fakeDeadLetters{}, &fakeSender{}, nil)

	_, err := relay.drain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mark published")
}

func TestNewRelayAppliesFallbacks(t *testing.T) {
	relay, err := NewRelay(RelayParams{
		Logger:      testLogger(),
		DB:          fakeDB{},
		Broker:      fakeBroker{},
		Events:      &fakeEventStore{},
		DeadLetters: &fakeDeadLetters{},
		Resolver:    mustRegistry(t),
	})
	require.NoError(t, err)
	assert.Equal(t, fallbackBatchSize, relay.batchSize)
	assert.Equal(t, fallbackMaxAttempts, relay.maxAttempts)
	assert.Equal(t, fallbackPoll, relay.poll)

	_, err = NewRelay(RelayParams{Logger: testLogger()})
	require.Error(t, err)
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	relay := newTestRelay(t, &fakeEventStore{}, &fakeDeadLetters{}, &fakeSender{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := relay.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunFailsWhenBrokerIsDown(t *testing.T) {
	relay, err := NewRelay(RelayParams{
		Logger:      testLogger(),
		DB:          fakeDB{},
		Broker:      fakeBroker{pingErr: errors.New("no route")},
		Events:      &fakeEventStore{},
		DeadLetters: &fakeDeadLetters{},
		Resolver:    mustRegistry(t),
		Senders:     func(string) topicSender { return &fakeSender{} },
	})
	require.NoError(t, err)
	require.ErrorContains(t, relay.Run(context.Background()), "pubsub ping failed")
}

func newTestRelay(t *testing.T, store *fakeEventStore, dlq *fakeDeadLetters, sender *fakeSender, reg prometheus.Registerer) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:      config.OutboxConfig{BatchSize: 10, PollIntervalMS: 5, MaxAttempts: 3},
		Logger:      testLogger(),
		DB:          fakeDB{},
		Broker:      fakeBroker{},
		Events:      store,
		DeadLetters: dlq,
		Resolver:    mustRegistry(t),
		Metrics:     metrics.NewPublisherMetrics(reg),
		Senders: func(string) topicSender {
			if sender == nil {
				return nil
			}
			return sender
		},
	})
	require.NoError(t, err)
	return relay
}

func mustRegistry(t *testing.T) *registry.EventRegistry {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{LedgerTopic: "teamhub-ledger-events"})
	require.NoError(t, err)
	return reg
}

func transferRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(map[string]any{"entry_id": uuid.NewString(), "amount": "12.50"})
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventCreditTransferred,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func counterValue(t *testing.T, g prometheus.Gatherer, name string) int {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return int(total)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }
func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakeBroker struct {
	pingErr error
}

func (b fakeBroker) Ping(context.Context) error          { return b.pingErr }
func (fakeBroker) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeEventStore struct {
	rows       []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (f *fakeEventStore) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	rows := f.rows
	f.rows = nil
	return rows, nil
}

func (f *fakeEventStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeEventStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeEventStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDeadLetters struct {
	entries []models.OutboxDLQ
}

func (f *fakeDeadLetters) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeSender struct {
	errs []error
	sent []*gcppubsub.Message
}

func (f *fakeSender) Send(_ context.Context, msg *gcppubsub.Message) error {
	f.sent = append(f.sent, msg)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}
