// Package ability derives coarse (action, subject) capabilities from a role
// name and the permission names granted to it.
package ability

import "slices"

// Action is an operation a principal may perform.
type Action string

const (
	Manage Action = "manage"
	Create Action = "create"
	Read   Action = "read"
	Update Action = "update"
	Delete Action = "delete"
)

// Subject is a kind of resource.
type Subject string

const (
	All        Subject = "all"
	Dashboard  Subject = "Dashboard"
	Company    Subject = "Company"
	Division   Subject = "Division"
	Location   Subject = "Location"
	Contact    Subject = "Contact"
	Contract   Subject = "Contract"
	Employee   Subject = "Employee"
	User       Subject = "User"
	Role       Subject = "Role"
	Permission Subject = "Permission"
	AuditLog   Subject = "AuditLog"
)

// AdminRole is granted manage on all subjects regardless of permissions.
const AdminRole = "admin"

// Permission names recognised by Define.
const (
	ViewDashboard   = "VIEW_DASHBOARD"
	ViewCompanies   = "VIEW_COMPANIES"
	ManageCompanies = "MANAGE_COMPANIES"
	ViewContracts   = "VIEW_CONTRACTS"
	ViewContacts    = "VIEW_CONTACTS"
	ManageContacts  = "MANAGE_CONTACTS"
	ViewEmployees   = "VIEW_EMPLOYEES"
	ManageEmployees = "MANAGE_EMPLOYEES"
	ViewUsers       = "VIEW_USERS"
	ManageUsers     = "MANAGE_USERS"
	ManageRoles     = "MANAGE_ROLES"
	ViewAuditLog    = "VIEW_AUDIT_LOG"
)

// Rule grants one action on one subject.
type Rule struct {
	Action  Action  `json:"action"`
	Subject Subject `json:"subject"`
}

// Ability is an immutable set of rules.
type Ability struct {
	rules []Rule
}

type grant struct {
	action   Action
	subjects []Subject
}

var grants = map[string]grant{
	ViewDashboard:   {Read, []Subject{Dashboard}},
	ViewCompanies:   {Read, []Subject{Company, Division, Location}},
	ManageCompanies: {Manage, []Subject{Company, Division, Location, Contract}},
	ViewContracts:   {Read, []Subject{Contract}},
	ViewContacts:    {Read, []Subject{Contact}},
	ManageContacts:  {Manage, []Subject{Contact}},
	ViewEmployees:   {Read, []Subject{Employee}},
	ManageEmployees: {Manage, []Subject{Employee}},
	ViewUsers:       {Read, []Subject{User}},
	ManageUsers:     {Manage, []Subject{User}},
	ManageRoles:     {Manage, []Subject{Role, Permission}},
	ViewAuditLog:    {Read, []Subject{AuditLog}},
}

// Define builds the ability for a role and its permission names. Unknown
// permission names grant nothing.
func Define(role string, permissions []string) *Ability {
	b := &builder{}
	if role == AdminRole {
		b.can(Manage, All)
		return b.build()
	}

	for _, p := range permissions {
		if g, ok := grants[p]; ok {
			b.can(g.action, g.subjects...)
		}
	}
	return b.build()
}

// Can reports whether action on subject is allowed.
func (a *Ability) Can(action Action, subject Subject) bool {
	if a == nil {
		return false
	}
	for _, r := range a.rules {
		if (r.Action == Manage || r.Action == action) && (r.Subject == All || r.Subject == subject) {
			return true
		}
	}
	return false
}

// Rules returns a copy of the granted rules in grant order.
func (a *Ability) Rules() []Rule {
	if a == nil {
		return []Rule{}
	}
	return slices.Clone(a.rules)
}

type builder struct {
	rules []Rule
}

func (b *builder) can(action Action, subjects ...Subject) {
	for _, s := range subjects {
		rule := Rule{Action: action, Subject: s}
		if !slices.Contains(b.rules, rule) {
			b.rules = append(b.rules, rule)
		}
	}
}

func (b *builder) build() *Ability {
	if b.rules == nil {
		b.rules = []Rule{}
	}
	return &Ability{rules: b.rules}
}
