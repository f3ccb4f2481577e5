package stream

import (
	"context"
	"errors"

	"restaurant-sync/sync-svc/internal/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

var ErrNoBrokers = errors.New("kafka transport needs at least one broker")

// KafkaDialer consumes the backend's event topic. Each session joins its own
// consumer group so every view sees every restaurant event, and frames for
// other restaurants are skipped.
type KafkaDialer struct {
	Brokers []string
	Topic   string
	// Dialer is used to check that a broker is reachable before the session
	// reports Connected. Defaults to kafka.DefaultDialer.
	Dialer *kafka.Dialer
}

func (d KafkaDialer) Dial(ctx context.Context, scope Scope) (Conn, error) {
	if len(d.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = kafka.DefaultDialer
	}
	probe, err := dialer.DialContext(ctx, "tcp", d.Brokers[0])
	if err != nil {
		return nil, err
	}
	probe.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     d.Brokers,
		Topic:       d.Topic,
		GroupID:     "restaurant-sync-" + scope.RestaurantID + "-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		Dialer:      dialer,
	})
	return &kafkaConn{reader: reader, restaurantID: scope.RestaurantID}, nil
}

type kafkaConn struct {
	reader       *kafka.Reader
	restaurantID string
}

func (c *kafkaConn) ReadFrame(ctx context.Context) (string, error) {
	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return "", err
		}
		if forRestaurant(message, c.restaurantID) {
			return string(message.Value), nil
		}
	}
}

func (c *kafkaConn) Close() error {
	return c.reader.Close()
}

// forRestaurant matches on the message key when the producer set one and on
// the envelope's restaurant_id otherwise. Values that do not decode are let
// through so the classifier can count them.
func forRestaurant(message kafka.Message, restaurantID string) bool {
	if len(message.Key) > 0 {
		return string(message.Key) == restaurantID
	}
	fields, ok := domain.DecodeFields(message.Value)
	if !ok {
		return true
	}
	id := fields.Str("restaurant_id")
	return id == "" || id == restaurantID
}
