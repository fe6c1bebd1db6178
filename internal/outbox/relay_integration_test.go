//go:build integration

package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"moa/internal/outbox"
	outboxstore "moa/internal/outbox/store"
	"moa/internal/platform/config"
	"moa/internal/platform/kafka"
	"moa/internal/platform/logger"
	"moa/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	broker   *containers.RedpandaContainer
	producer *kafka.Producer
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T())
	producer, err := kafka.NewProducer(config.KafkaConfig{
		Brokers:  []string{s.broker.Broker},
		ClientID: "moa-relay-test",
	}, logger.Discard())
	s.Require().NoError(err)
	s.producer = producer
}

func (s *RelaySuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *RelaySuite) TestPublishesToAggregateTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const prefix = "moa-it"
	s.Require().NoError(s.producer.EnsureTopics(ctx, 1, 1, outbox.Topics(prefix)...))

	store := outboxstore.NewInMemory()
	evt, err := outbox.New(outbox.AggregateSettlement, "st-42", outbox.TypeSettlementCompleted,
		map[string]any{"net_amount": 12750}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(store.Append(ctx, evt))

	relay := outbox.NewRelay(store, s.producer, prefix, logger.Discard(), nil)
	n, err := relay.RelayPending(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.RelayPending(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published rows are not sent twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Broker),
		kgo.ConsumeTopics(outbox.Topic(prefix, outbox.AggregateSettlement)),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("st-42", string(records[0].Key))
	s.JSONEq(`{"net_amount":12750}`, string(records[0].Value))

	headers := map[string]string{}
	for _, h := range records[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(outbox.TypeSettlementCompleted, headers["event_type"])
	s.Equal(evt.ID.String(), headers["event_id"])
}
