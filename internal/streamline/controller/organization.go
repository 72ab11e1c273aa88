package controller

import (
	"context"
	"fmt"

	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	CompanyService  = ResourceService[models.Company, models.CompanyUpdate]
	DivisionService = ResourceService[models.Division, models.DivisionUpdate]
	LocationService = ResourceService[models.Location, models.LocationUpdate]
	ContactService  = ResourceService[models.Contact, models.ContactUpdate]
	ContractService = ResourceService[models.Contract, models.ContractUpdate]
)

// CompanyNames checks company name uniqueness ahead of the insert.
type CompanyNames interface {
	CompanyExistsByName(ctx context.Context, name string) (bool, error)
}

// NewCompanyService builds the company service, rejecting duplicate names.
func NewCompanyService(store Store[models.Company], names CompanyNames, producer EventProducer, logger *zap.Logger) *CompanyService {
	create := func(ctx context.Context, c *models.Company) error {
		if err := firstError(required("name", c.Name), defaultStatus(&c.Status)); err != nil {
			return err
		}
		exists, err := names.CompanyExistsByName(ctx, c.Name)
		if err != nil {
			return fmt.Errorf("failed to check name existence: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: company %q", e.ErrDuplicate, c.Name)
		}
		return nil
	}
	update := func(_ context.Context, _ uuid.UUID, u *models.CompanyUpdate) error {
		return firstError(notBlank("name", u.Name), validStatus(u.Status))
	}
	return NewResourceService("Company", store, producer, logger, create, update)
}

// NewDivisionService builds the division service. Divisions require a company.
func NewDivisionService(store Store[models.Division], producer EventProducer, logger *zap.Logger) *DivisionService {
	create := func(_ context.Context, d *models.Division) error {
		d.Company = nil
		return firstError(
			requiredID("companyId", d.CompanyID),
			required("name", d.Name),
			defaultStatus(&d.Status),
		)
	}
	update := func(_ context.Context, _ uuid.UUID, u *models.DivisionUpdate) error {
		return firstError(notNilID("companyId", u.CompanyID), notBlank("name", u.Name), validStatus(u.Status))
	}
	return NewResourceService("Division", store, producer, logger, create, update)
}

// NewLocationService builds the location service.
func NewLocationService(store Store[models.Location], producer EventProducer, logger *zap.Logger) *LocationService {
	create := func(_ context.Context, l *models.Location) error {
		return firstError(
			requiredID("companyId", l.CompanyID),
			required("name", l.Name),
			defaultStatus(&l.Status),
		)
	}
	update := func(_ context.Context, _ uuid.UUID, u *models.LocationUpdate) error {
		return firstError(notNilID("companyId", u.CompanyID), notBlank("name", u.Name), validStatus(u.Status))
	}
	return NewResourceService("Location", store, producer, logger, create, update)
}

// NewContactService builds the contact service. Contacts need a company and a full name.
func NewContactService(store Store[models.Contact], producer EventProducer, logger *zap.Logger) *ContactService {
	create := func(_ context.Context, c *models.Contact) error {
		return firstError(
			requiredID("companyId", c.CompanyID),
			required("firstName", c.FirstName),
			required("lastName", c.LastName),
			defaultStatus(&c.Status),
		)
	}
	update := func(_ context.Context, _ uuid.UUID, u *models.ContactUpdate) error {
		return firstError(
			notNilID("companyId", u.CompanyID),
			notBlank("firstName", u.FirstName),
			notBlank("lastName", u.LastName),
			validStatus(u.Status),
		)
	}
	return NewResourceService("Contact", store, producer, logger, create, update)
}

// NewContractService builds the contract service. New contracts default to DRAFT.
func NewContractService(store Store[models.Contract], producer EventProducer, logger *zap.Logger) *ContractService {
	create := func(_ context.Context, c *models.Contract) error {
		if c.Status == "" {
			c.Status = models.ContractDraft
		}
		if err := firstError(requiredID("companyId", c.CompanyID), required("title", c.Title)); err != nil {
			return err
		}
		if !c.Status.Valid() {
			return invalid("unknown contract status %q", c.Status)
		}
		if c.Value < 0 {
			return invalid("value cannot be negative")
		}
		if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
			return invalid("endDate is before startDate")
		}
		return nil
	}
	update := func(ctx context.Context, id uuid.UUID, u *models.ContractUpdate) error {
		if err := notBlank("title", u.Title); err != nil {
			return err
		}
		if u.Status != nil && !u.Status.Valid() {
			return invalid("unknown contract status %q", *u.Status)
		}
		if u.Value != nil && *u.Value < 0 {
			return invalid("value cannot be negative")
		}
		if u.StartDate == nil && u.EndDate == nil {
			return nil
		}

		// Check the resulting range against whichever bound is unchanged.
		start, end := u.StartDate, u.EndDate
		if start == nil || end == nil {
			stored, err := store.Get(ctx, id)
			if err != nil {
				return wrap(err, "failed to get Contract")
			}
			if start == nil {
				start = stored.StartDate
			}
			if end == nil {
				end = stored.EndDate
			}
		}
		if start != nil && end != nil && end.Before(*start) {
			return invalid("endDate is before startDate")
		}
		return nil
	}
	return NewResourceService("Contract", store, producer, logger, create, update)
}
