package test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/streamline/internal/streamline/controller"
	"github.com/gartstein/streamline/internal/streamline/db"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const (
	testTopic   = "streamline-events-test"
	testBroker  = "localhost:9092"
	auditGroup  = "streamline-audit-test"
	testTimeout = 20 * time.Second
)

// IntegrationTestSuite runs against the PostgreSQL and Kafka containers of
// the local compose setup.
type IntegrationTestSuite struct {
	suite.Suite
	dbRepo      *db.Repository
	kafkaReader *kafka.Reader
	producer    *events.Producer
	logger      *zap.Logger
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.logger = zap.NewNop()

	var err error
	s.dbRepo, err = initializeDBWithRetry(s.logger)
	if err != nil {
		s.T().Fatal("Database initialization failed:", err)
	}

	s.producer, s.kafkaReader, err = initializeKafkaWithRetry(testTopic)
	if err != nil {
		s.T().Fatal("Kafka initialization failed:", err)
	}
}

func initializeDBWithRetry(logger *zap.Logger) (*db.Repository, error) {
	cfg := &db.Config{
		Driver:   db.DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "test",
		Password: "test",
		DBName:   "test",
		SSLMode:  "disable",
	}

	var repo *db.Repository
	err := backoff.Retry(func() error {
		var err error
		repo, err = db.NewRepository(cfg, logger)
		return err
	}, backoff.NewExponentialBackOff())
	return repo, err
}

func initializeKafkaWithRetry(topic string) (*events.Producer, *kafka.Reader, error) {
	var producer *events.Producer
	err := backoff.Retry(func() error {
		var err error
		producer, err = events.NewProducer([]string{testBroker}, zap.NewNop(), topic)
		return err
	}, backoff.NewExponentialBackOff())
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer initialization failed: %w", err)
	}

	// Verify Kafka readiness using metadata instead of blocking on ReadMessage
	err = backoff.Retry(func() error {
		conn, err := kafka.Dial("tcp", testBroker)
		if err != nil {
			return err
		}
		defer conn.Close()

		partitions, err := conn.ReadPartitions(topic)
		if err != nil || len(partitions) == 0 {
			return fmt.Errorf("topic %s not found", topic)
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5))
	if err != nil {
		producer.Close()
		return nil, nil, fmt.Errorf("kafka topic check failed: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{testBroker},
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return producer, reader, nil
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
	if s.kafkaReader != nil {
		_ = s.kafkaReader.Close()
	}
	if s.dbRepo != nil {
		_ = s.dbRepo.Close()
	}
}

func (s *IntegrationTestSuite) SetupTest() {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	err := s.dbRepo.Exec(ctx, "TRUNCATE TABLE audit_logs, contracts, contacts, locations, divisions, companies CASCADE")
	if err != nil {
		s.T().Fatal("Failed to clean database:", err)
	}
}

func (s *IntegrationTestSuite) companies() *controller.CompanyService {
	return controller.NewCompanyService(s.dbRepo.Companies(), s.dbRepo, s.producer, s.logger)
}

func (s *IntegrationTestSuite) TestCompanyCreate() {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	created, err := s.companies().Create(ctx, &models.Company{Name: "New Company", Website: "https://new.example"})
	if err != nil {
		s.T().Fatal("Create failed:", err)
	}

	assert.Equal(s.T(), "New Company", created.Name)
	assert.Equal(s.T(), models.StatusActive, created.Status)
	s.verifyKafkaEvent(ctx, events.Created, created.ID)
}

func (s *IntegrationTestSuite) TestCompanyUpdate() {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	company := &models.Company{Name: "New Company", Status: models.StatusActive}
	if err := s.dbRepo.Companies().Create(ctx, company); err != nil {
		s.T().Fatal("Create failed:", err)
	}

	newName := "Updated Company"
	updated, err := s.companies().Update(ctx, company.ID, &models.CompanyUpdate{Name: &newName})
	if err != nil {
		s.T().Fatal("Update failed:", err)
	}

	assert.Equal(s.T(), newName, updated.Name)
	s.verifyKafkaEvent(ctx, events.Updated, updated.ID)
}

func (s *IntegrationTestSuite) TestCompanyDelete() {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	company := &models.Company{Name: "New Company", Status: models.StatusActive}
	if err := s.dbRepo.Companies().Create(ctx, company); err != nil {
		s.T().Fatal("Create failed:", err)
	}
	if err := s.companies().Delete(ctx, company.ID); err != nil {
		s.T().Fatal("Delete failed:", err)
	}

	_, err := s.dbRepo.Companies().Get(ctx, company.ID)
	assert.ErrorIs(s.T(), err, e.ErrNotFound)
	s.verifyKafkaEvent(ctx, events.Deleted, company.ID)
}

// TestAuditConsumer checks that events on the topic end up in the audit log.
func (s *IntegrationTestSuite) TestAuditConsumer() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	audit := controller.NewAuditService(s.dbRepo.AuditLogs(), s.logger)
	consumer := events.NewConsumer([]string{testBroker}, auditGroup+"-"+uuid.NewString(), testTopic, s.logger)
	consumer.RegisterHandler(audit.Record)
	consumer.Start(ctx)
	defer func() {
		cancel()
		consumer.Wait()
		consumer.Close()
	}()

	created, err := s.companies().Create(ctx, &models.Company{Name: "Audited"})
	if err != nil {
		s.T().Fatal("Create failed:", err)
	}

	err = backoff.Retry(func() error {
		logs, err := audit.List(ctx, models.ListOptions{Filters: map[string]any{"resource_id": created.ID}})
		if err != nil {
			return backoff.Permanent(err)
		}
		if len(logs) == 0 {
			return fmt.Errorf("no audit record yet")
		}
		return nil
	}, backoff.WithContext(backoff.NewConstantBackOff(500*time.Millisecond), ctx))
	assert.NoError(s.T(), err, "audit record should be persisted")
}

func (s *IntegrationTestSuite) verifyKafkaEvent(ctx context.Context, eventType events.EventType, id uuid.UUID) {
	event := s.consumeKafkaEvent(ctx, eventType, id)
	assert.Equal(s.T(), id, event.ResourceID, "Kafka message resource ID mismatch")
	assert.Equal(s.T(), "Company", event.Resource)
}

func (s *IntegrationTestSuite) consumeKafkaEvent(ctx context.Context, eventType events.EventType, id uuid.UUID) events.Event {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	const maxRetries = 200
	for attempts := 0; attempts < maxRetries; attempts++ {
		msg, err := s.kafkaReader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.T().Logf("Kafka read attempt %d failed: %v", attempts, err)
			time.Sleep(time.Second)
			continue
		}
		if string(msg.Key) != id.String() {
			continue
		}
		var event events.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			s.T().Fatalf("Failed to unmarshal Kafka message: %v", err)
		}
		if event.Type != eventType {
			continue
		}
		return event
	}
	s.T().Fatalf("No %s event received for %s", eventType, id)
	return events.Event{}
}
