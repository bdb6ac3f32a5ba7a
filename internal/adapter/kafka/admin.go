package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
)

// dialFunc opens a connection to one broker.
type dialFunc func(ctx context.Context, network, address string) (*kafkago.Conn, error)

// WaitForBrokers blocks until one of the brokers accepts a connection,
// retrying with exponential backoff for at most maxWait.
func WaitForBrokers(ctx context.Context, brokers []string, maxWait time.Duration, logger *slog.Logger) error {
	return waitFor(ctx, brokers, maxWait, logger, kafkago.DialContext)
}

func waitFor(ctx context.Context, brokers []string, maxWait time.Duration, logger *slog.Logger, dial dialFunc) error {
	if len(brokers) == 0 {
		return errors.New("wait for brokers: no brokers configured")
	}

	attempt := 0
	operation := func() error {
		broker := brokers[attempt%len(brokers)]
		attempt++
		conn, err := dial(ctx, "tcp", broker)
		if err != nil {
			return fmt.Errorf("dial %s: %w", broker, err)
		}
		return conn.Close()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	notify := func(err error, next time.Duration) {
		logger.Warn("kafka not reachable, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("wait for brokers: %w", err)
	}
	return nil
}

// EnsureTopics creates the given topics through the cluster controller.
// Topics that already exist are left untouched.
func EnsureTopics(ctx context.Context, broker string, partitions int, topics ...string) error {
	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial %s: %w", broker, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	ctrl, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrl.Close()

	configs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		configs[i] = kafkago.TopicConfig{Topic: topic, NumPartitions: partitions, ReplicationFactor: 1}
	}
	if err := ctrl.CreateTopics(configs...); err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}
	return nil
}
