package controller

import (
	"github.com/gartstein/streamline/internal/streamline/db"
	"go.uber.org/zap"
)

// Services bundles every service the transport layer needs.
type Services struct {
	Companies *CompanyService
	Divisions *DivisionService
	Locations *LocationService
	Contacts  *ContactService
	Contracts *ContractService
	Employees *EmployeeService
	Users     *UserService
	Access    *AccessService
	Auth      *AuthService
	Audit     *AuditService
}

// NewServices builds every service over one repository and producer.
func NewServices(repo *db.Repository, producer EventProducer, logger *zap.Logger) *Services {
	return &Services{
		Companies: NewCompanyService(repo.Companies(), repo, producer, logger),
		Divisions: NewDivisionService(repo.Divisions(), producer, logger),
		Locations: NewLocationService(repo.Locations(), producer, logger),
		Contacts:  NewContactService(repo.Contacts(), producer, logger),
		Contracts: NewContractService(repo.Contracts(), producer, logger),
		Employees: NewEmployeeService(repo, producer, logger),
		Users:     NewUserService(repo.Users(), repo, producer, logger),
		Access:    NewAccessService(repo, producer, logger),
		Auth:      NewAuthService(repo, producer, logger),
		Audit:     NewAuditService(repo.AuditLogs(), logger),
	}
}
