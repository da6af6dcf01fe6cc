package shared

// Role classifies an authenticated caller.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleEmployee   Role = "employee"
	RoleClient     Role = "client"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// IsStaff reports whether the role has unrestricted read access to the ledger.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleAccountant || r == RoleEmployee
}

// Capability names a guarded ledger operation.
type Capability string

const (
	CapInvoiceRead    Capability = "invoice.read"
	CapInvoiceCreate  Capability = "invoice.create"
	CapInvoiceUpdate  Capability = "invoice.update"
	CapInvoiceArchive Capability = "invoice.archive"
	CapPaymentWrite   Capability = "payment.write"
	CapClientRead     Capability = "client.read"
	CapClientCreate   Capability = "client.create"
	CapClientUpdate   Capability = "client.update"
	CapClientDelete   Capability = "client.delete"
	CapDashboardRead  Capability = "dashboard.read"
	CapAuditRead      Capability = "audit.read"
	CapUserManage     Capability = "user.manage"
)

// grants is the single declarative capability table consulted for every
// authorization decision. Per-route role checks must not exist anywhere else.
var grants = map[Capability]map[Role]bool{
	CapInvoiceRead:    {RoleAdmin: true, RoleAccountant: true, RoleEmployee: true, RoleClient: true},
	CapInvoiceCreate:  {RoleAdmin: true, RoleAccountant: true, RoleEmployee: true},
	CapInvoiceUpdate:  {RoleAdmin: true, RoleAccountant: true},
	CapInvoiceArchive: {RoleAdmin: true},
	CapPaymentWrite:   {RoleAdmin: true, RoleAccountant: true},
	CapClientRead:     {RoleAdmin: true, RoleAccountant: true, RoleEmployee: true},
	CapClientCreate:   {RoleAdmin: true, RoleAccountant: true, RoleEmployee: true},
	CapClientUpdate:   {RoleAdmin: true, RoleAccountant: true},
	CapClientDelete:   {RoleAdmin: true},
	CapDashboardRead:  {RoleAdmin: true, RoleAccountant: true, RoleEmployee: true},
	CapAuditRead:      {RoleAdmin: true},
	CapUserManage:     {RoleAdmin: true},
}

// Scope describes the authenticated caller for the duration of one request.
// Callers with role client only ever see invoices belonging to the client
// record whose email matches their account email.
type Scope struct {
	UserID int64
	Email  string
	Role   Role
}

// Can reports whether the scope permits the capability.
func (s Scope) Can(c Capability) bool {
	return grants[c][s.Role]
}

// Authorize returns ErrForbidden when the capability is not granted. A zero
// scope (no authenticated user) yields ErrUnauthenticated.
func (s Scope) Authorize(c Capability) error {
	if s.UserID == 0 {
		return ErrUnauthenticated
	}
	if !s.Can(c) {
		return ErrForbidden
	}
	return nil
}
