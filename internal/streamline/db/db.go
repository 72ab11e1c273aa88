// Package db implements the gorm-backed repository for every Streamline
// entity, including the access-control joins and the audit log.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Repository is the gorm-backed store shared by every service.
type Repository struct {
	db *gorm.DB
}

// Config selects the database driver and connection.
type Config struct {
	Driver string
	// DSN takes precedence over the discrete connection fields.
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverPostgres, "":
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
		}
		return postgres.Open(dsn), nil
	case DriverSQLite:
		if c.DSN == "" {
			return nil, fmt.Errorf("sqlite driver requires a DSN")
		}
		return sqlite.Open(withForeignKeys(c.DSN)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// withForeignKeys turns on SQLite foreign key enforcement, which is off per
// connection by default.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// NewRepository opens the database, migrates the schema and returns a
// Repository bound to it.
func NewRepository(cfg *Config, logger *zap.Logger) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func newGormLogger(logger *zap.Logger) gormlogger.Interface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func migrate(db *gorm.DB) error {
	joins := []struct {
		model any
		field string
		join  any
	}{
		{&models.PermissionGroup{}, "Permissions", &models.PermissionOnGroup{}},
		{&models.Role{}, "Groups", &models.RoleGroup{}},
		{&models.Employee{}, "Locations", &models.EmployeeLocation{}},
	}
	for _, j := range joins {
		if err := db.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return fmt.Errorf("setup join table %s: %w", j.field, err)
		}
	}

	return db.AutoMigrate(
		&models.Company{},
		&models.Division{},
		&models.Location{},
		&models.Contact{},
		&models.Contract{},
		&models.Permission{},
		&models.PermissionGroup{},
		&models.Role{},
		&models.Employee{},
		&models.User{},
		&models.PermissionOnGroup{},
		&models.RoleGroup{},
		&models.EmployeeLocation{},
		&models.AuditLog{},
	)
}

func (r *Repository) Companies() *Table[models.Company] {
	return newTable[models.Company](r.db, "name", "Divisions", "Locations", "Contacts", "Contracts")
}

func (r *Repository) Divisions() *Table[models.Division] {
	return newTable[models.Division](r.db, "name", "Company", "Locations", "Contacts")
}

func (r *Repository) Locations() *Table[models.Location] {
	return newTable[models.Location](r.db, "name")
}

func (r *Repository) Contacts() *Table[models.Contact] {
	return newTable[models.Contact](r.db, "last_name, first_name")
}

func (r *Repository) Contracts() *Table[models.Contract] {
	return newTable[models.Contract](r.db, "created_at DESC")
}

func (r *Repository) Employees() *Table[models.Employee] {
	return newTable[models.Employee](r.db, "last_name, first_name", "User", "User.Role", "Locations")
}

func (r *Repository) Users() *Table[models.User] {
	return newTable[models.User](r.db, "username", "Role")
}

func (r *Repository) Roles() *Table[models.Role] {
	return newTable[models.Role](r.db, "name", "Groups", "Groups.Permissions")
}

func (r *Repository) Permissions() *Table[models.Permission] {
	return newTable[models.Permission](r.db, "name")
}

func (r *Repository) PermissionGroups() *Table[models.PermissionGroup] {
	return newTable[models.PermissionGroup](r.db, "name", "Permissions")
}

func (r *Repository) AuditLogs() *Table[models.AuditLog] {
	return newTable[models.AuditLog](r.db, "occurred_at DESC")
}

func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("name = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) UserExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// translate maps gorm errors onto the shared sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return e.ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: related record missing or still referenced", e.ErrInvalidInput)
	default:
		return err
	}
}
