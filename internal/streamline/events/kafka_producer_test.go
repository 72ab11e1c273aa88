package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testEvent() Event {
	return NewEvent(Created, "Company", uuid.New(), "admin", map[string]string{"name": "Acme"})
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, zaptest.NewLogger(t), "streamline.events")
	assert.Error(t, err)
}

func TestNewProducerWithWriter(t *testing.T) {
	defer goleak.VerifyNone(t)

	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)
	producer := NewProducerWithWriter(mockWriter, zaptest.NewLogger(t))

	assert.NotNil(t, producer.events)
	assert.Equal(t, queueSize, cap(producer.events))
	assert.Equal(t, "kafka_producer", producer.logger.Check(zap.InfoLevel, "").LoggerName)

	producer.Close()
	mockWriter.AssertCalled(t, "Close")
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := &Producer{events: make(chan Event, 1), logger: zaptest.NewLogger(t)}

		producer.Produce(testEvent())

		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{events: make(chan Event, 1), logger: zap.New(core)}

		// Fill the channel
		producer.Produce(testEvent())
		producer.Produce(testEvent()) // This should be dropped

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("resource", "Company")).Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	logger := zaptest.NewLogger(t)
	event := testEvent()

	producer := &Producer{
		writer: mockWriter,
		logger: logger,
	}

	t.Run("successful send", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		producer.sendEvent(context.Background(), event)

		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Key:   []byte(event.ResourceID.String()),
				Value: mustMarshal(event),
				Headers: []kafka.Header{
					{Key: "type", Value: []byte("created")},
					{Key: "resource", Value: []byte("Company")},
				},
			},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		// Mock JSON marshaling to force error
		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("resource_id", event.ResourceID.String())).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_CloseFlushesQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	mockWriter := new(MockKafkaWriter)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := NewProducerWithWriter(mockWriter, zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		producer.Produce(testEvent())
	}
	producer.Close()

	mockWriter.AssertNumberOfCalls(t, "WriteMessages", 5)
	mockWriter.AssertCalled(t, "Close")
}

func TestProducer_EventLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	mockWriter := new(MockKafkaWriter)
	sent := make(chan struct{}, 1)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		sent <- struct{}{}
	})
	mockWriter.On("Close").Return(nil)

	producer := NewProducerWithWriter(mockWriter, zaptest.NewLogger(t))
	producer.Produce(testEvent())

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}
	producer.Close()
}

func TestLoopbackWriter(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		mu       sync.Mutex
		received []Event
	)
	handled := make(chan struct{}, 2)
	writer := NewLoopbackWriter(func(_ context.Context, event Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		handled <- struct{}{}
		return nil
	})

	producer := NewProducerWithWriter(writer, zaptest.NewLogger(t))
	first := testEvent()
	producer.Produce(first)
	producer.Produce(NewEvent(Deleted, "Division", uuid.New(), "jane", nil))
	producer.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, first.ResourceID, received[0].ResourceID)
	assert.Equal(t, Created, received[0].Type)
	assert.Equal(t, map[string]any{"name": "Acme"}, received[0].Data)
	assert.Equal(t, Deleted, received[1].Type)
	assert.Equal(t, "jane", received[1].Actor)

	assert.Error(t, writer.WriteMessages(context.Background(), kafka.Message{Value: []byte("{")}))
}

func mustMarshal(event Event) []byte {
	data, _ := json.Marshal(event)
	return data
}
