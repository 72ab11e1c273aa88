package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gartstein/streamline/internal/pkg/utils"
	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/events"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockStore implements Store for testing
type MockStore[T any] struct {
	create func(context.Context, *T) error
	get    func(context.Context, uuid.UUID) (*T, error)
	list   func(context.Context, models.ListOptions) ([]T, error)
	update func(context.Context, uuid.UUID, any) error
	delete func(context.Context, uuid.UUID) error
}

func (m *MockStore[T]) Create(ctx context.Context, item *T) error {
	return m.create(ctx, item)
}

func (m *MockStore[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return m.get(ctx, id)
}

func (m *MockStore[T]) List(ctx context.Context, opts models.ListOptions) ([]T, error) {
	return m.list(ctx, opts)
}

func (m *MockStore[T]) Update(ctx context.Context, id uuid.UUID, changes any) error {
	return m.update(ctx, id, changes)
}

func (m *MockStore[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

type mockNames struct {
	exists bool
	err    error
}

func (m mockNames) CompanyExistsByName(context.Context, string) (bool, error) {
	return m.exists, m.err
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []events.Event
}

// Produce records the event.
func (m *MockProducer) Produce(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.producedEvents = append(m.producedEvents, event)
}

func (m *MockProducer) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.producedEvents...)
}

// newTestRepo opens a private in-memory SQLite database.
func newTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	repo, err := db.NewRepository(&db.Config{
		Driver: db.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	}, zaptest.NewLogger(t))
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func asPrincipal(ctx context.Context, username string) context.Context {
	user := &models.User{Username: username}
	user.ID = uuid.New()
	return auth.WithPrincipal(ctx, auth.NewPrincipal(user, nil))
}

func TestCompanyService_Create(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		input         *models.Company
		names         mockNames
		mockSetup     func(*MockStore[models.Company])
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful creation",
			input: &models.Company{Name: "Valid Name", Website: "https://valid.example"},
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.create = func(_ context.Context, c *models.Company) error {
					c.ID = testID
					return nil
				}
			},
			expectError: false,
		},
		{
			name:          "duplicate name",
			input:         &models.Company{Name: "Duplicate"},
			names:         mockNames{exists: true},
			mockSetup:     func(_ *MockStore[models.Company]) {},
			expectError:   true,
			expectedError: e.ErrDuplicate,
		},
		{
			name:          "missing name",
			input:         &models.Company{Name: "   "},
			mockSetup:     func(_ *MockStore[models.Company]) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "unknown status",
			input:         &models.Company{Name: "Valid", Status: "ARCHIVED"},
			mockSetup:     func(_ *MockStore[models.Company]) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "repository error",
			input: &models.Company{Name: "Valid"},
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.create = func(_ context.Context, _ *models.Company) error {
					return errors.New("database error")
				}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore[models.Company]{}
			tt.mockSetup(store)
			producer := &MockProducer{}
			service := NewCompanyService(store, tt.names, producer, zaptest.NewLogger(t))

			result, err := service.Create(asPrincipal(context.Background(), "jane"), tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.expectedError != nil && !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				if len(producer.Events()) != 0 {
					t.Error("no event expected on failure")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Status != models.StatusActive {
				t.Errorf("expected default status ACTIVE, got %q", result.Status)
			}
			produced := producer.Events()
			if len(produced) != 1 {
				t.Fatal("expected creation event to be produced")
			}
			if produced[0].Type != events.Created || produced[0].Resource != "Company" ||
				produced[0].ResourceID != testID || produced[0].Actor != "jane" {
				t.Errorf("unexpected event %+v", produced[0])
			}
		})
	}
}

func TestCompanyService_CreateDiscardsClientID(t *testing.T) {
	clientID := uuid.New()
	store := &MockStore[models.Company]{
		create: func(_ context.Context, c *models.Company) error {
			if c.ID != uuid.Nil {
				return fmt.Errorf("id %s leaked into insert", c.ID)
			}
			return nil
		},
	}
	service := NewCompanyService(store, mockNames{}, &MockProducer{}, zaptest.NewLogger(t))

	input := &models.Company{Name: "Acme"}
	input.ID = clientID
	if _, err := service.Create(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompanyService_Get(t *testing.T) {
	testID := uuid.New()
	validCompany := &models.Company{Name: "Existing Company"}
	validCompany.ID = testID

	tests := []struct {
		name          string
		input         uuid.UUID
		mockSetup     func(*MockStore[models.Company])
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful get",
			input: testID,
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.get = func(_ context.Context, _ uuid.UUID) (*models.Company, error) {
					return validCompany, nil
				}
			},
			expectError: false,
		},
		{
			name:  "not found",
			input: uuid.New(),
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.get = func(_ context.Context, _ uuid.UUID) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore[models.Company]{}
			tt.mockSetup(store)

			service := NewCompanyService(store, mockNames{}, &MockProducer{}, zaptest.NewLogger(t))
			result, err := service.Get(context.Background(), tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if result.ID != tt.input {
					t.Errorf("expected company ID %v, got %v", tt.input, result.ID)
				}
			}
		})
	}
}

func TestCompanyService_Update(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		id            uuid.UUID
		input         *models.CompanyUpdate
		mockSetup     func(*MockStore[models.Company])
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful update",
			id:    testID,
			input: &models.CompanyUpdate{Name: utils.Ptr("Updated Name")},
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.update = func(_ context.Context, _ uuid.UUID, _ any) error {
					return nil
				}
				ms.get = func(_ context.Context, id uuid.UUID) (*models.Company, error) {
					c := &models.Company{Name: "Updated Name"}
					c.ID = id
					return c, nil
				}
			},
			expectError: false,
		},
		{
			name:          "invalid ID",
			id:            uuid.Nil,
			input:         &models.CompanyUpdate{},
			mockSetup:     func(_ *MockStore[models.Company]) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "blank name",
			id:            testID,
			input:         &models.CompanyUpdate{Name: utils.Ptr("")},
			mockSetup:     func(_ *MockStore[models.Company]) {},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "not found",
			id:    testID,
			input: &models.CompanyUpdate{Name: utils.Ptr("Name")},
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.update = func(_ context.Context, _ uuid.UUID, _ any) error {
					return e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore[models.Company]{}
			tt.mockSetup(store)
			producer := &MockProducer{}

			service := NewCompanyService(store, mockNames{}, producer, zaptest.NewLogger(t))
			_, err := service.Update(context.Background(), tt.id, tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(producer.Events()) != 1 || producer.Events()[0].Type != events.Updated {
					t.Error("expected update event to be produced")
				}
			}
		})
	}
}

func TestCompanyService_Delete(t *testing.T) {
	testID := uuid.New()

	tests := []struct {
		name          string
		input         uuid.UUID
		mockSetup     func(*MockStore[models.Company])
		expectError   bool
		expectedError error
	}{
		{
			name:  "successful deletion",
			input: testID,
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.get = func(_ context.Context, _ uuid.UUID) (*models.Company, error) {
					c := &models.Company{Name: "Gone"}
					c.ID = testID
					return c, nil
				}
				ms.delete = func(_ context.Context, _ uuid.UUID) error {
					return nil
				}
			},
			expectError: false,
		},
		{
			name:  "not found",
			input: testID,
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.get = func(_ context.Context, _ uuid.UUID) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectError:   true,
			expectedError: e.ErrNotFound,
		},
		{
			name:  "still referenced",
			input: testID,
			mockSetup: func(ms *MockStore[models.Company]) {
				ms.get = func(_ context.Context, _ uuid.UUID) (*models.Company, error) {
					return &models.Company{}, nil
				}
				ms.delete = func(_ context.Context, _ uuid.UUID) error {
					return fmt.Errorf("%w: related record missing or still referenced", e.ErrInvalidInput)
				}
			},
			expectError:   true,
			expectedError: e.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockStore[models.Company]{}
			tt.mockSetup(store)
			producer := &MockProducer{}

			service := NewCompanyService(store, mockNames{}, producer, zaptest.NewLogger(t))
			err := service.Delete(context.Background(), tt.input)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(producer.Events()) != 1 || producer.Events()[0].Type != events.Deleted {
					t.Error("expected deletion event to be produced")
				}
			}
		})
	}
}
