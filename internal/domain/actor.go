package domain

// Capability is a permission bit carried by an Actor.
type Capability string

const (
	CapReadCase           Capability = "can_read_case"
	CapMutateCase         Capability = "can_mutate_case"
	CapAllocateSlot       Capability = "can_allocate_slot"
	CapAdminCatalog       Capability = "can_admin_catalog"
	CapOverrideAuthorship Capability = "can_override_authorship"
)

// AllCapabilities lists every capability in a stable order.
var AllCapabilities = []Capability{
	CapReadCase,
	CapMutateCase,
	CapAllocateSlot,
	CapAdminCatalog,
	CapOverrideAuthorship,
}

// Role names known to the capability model.
const (
	RoleViewer        = "viewer"
	RoleOperator      = "operator"
	RoleTechnical     = "technical"
	RoleAdministrator = "administrator"
)

// Actor is the identity on whose behalf an operation runs.
type Actor struct {
	ID           string
	Role         string
	Capabilities map[Capability]bool
}

// NewActor builds an actor holding caps.
func NewActor(id, role string, caps ...Capability) Actor {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return Actor{ID: id, Role: role, Capabilities: m}
}

// Has reports whether the actor holds c.
func (a Actor) Has(c Capability) bool {
	return a.Capabilities[c]
}

// Require returns UnauthorizedActor when c is missing or the actor is anonymous.
func (a Actor) Require(c Capability) error {
	if a.ID == "" {
		return Errorf(KindUnauthorizedActor, "anonymous actor")
	}
	if !a.Has(c) {
		return Errorf(KindUnauthorizedActor, "actor %s lacks %s", a.ID, c)
	}
	return nil
}

// CanActOn reports whether the actor may delete or rewrite something createdBy authored.
func (a Actor) CanActOn(createdBy string) bool {
	return a.ID != "" && (a.ID == createdBy || a.Has(CapOverrideAuthorship))
}
