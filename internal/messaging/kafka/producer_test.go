package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewLifecycleEvent(
		EventTypePaymentIndeterminate,
		"order-123",
		map[string]interface{}{"attempt": 1},
	)

	if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewLifecycleEvent(EventTypeOrderSubmitted, "order-123", nil)

	if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewLifecycleEvent(t *testing.T) {
	metadata := map[string]interface{}{"amount_minor": 1000}

	event := NewLifecycleEvent(EventTypePaymentConfirmed, "order-123", metadata)

	if event.EventType != EventTypePaymentConfirmed {
		t.Errorf("expected event type %s, got %s", EventTypePaymentConfirmed, event.EventType)
	}
	if event.OrderID != "order-123" {
		t.Errorf("expected order id order-123, got %s", event.OrderID)
	}
	if event.EventID == "" {
		t.Error("event id should be generated")
	}
	if event.Metadata["amount_minor"] != 1000 {
		t.Error("metadata not set correctly")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}

	other := NewLifecycleEvent(EventTypePaymentConfirmed, "order-123", nil)
	if other.EventID == event.EventID {
		t.Error("each event must get a unique id")
	}
}
