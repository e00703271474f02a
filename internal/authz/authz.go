package authz

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"go.uber.org/zap"
)

// modelText grants capabilities (objects) to roles (subjects) with role inheritance.
const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// defaultPolicies: viewer < operator < technical < administrator.
var (
	defaultPolicies = [][]string{
		{domain.RoleViewer, string(domain.CapReadCase)},
		{domain.RoleOperator, string(domain.CapMutateCase)},
		{domain.RoleTechnical, string(domain.CapAllocateSlot)},
		{domain.RoleAdministrator, string(domain.CapAdminCatalog)},
		{domain.RoleAdministrator, string(domain.CapOverrideAuthorship)},
	}
	defaultGrouping = [][]string{
		{domain.RoleOperator, domain.RoleViewer},
		{domain.RoleTechnical, domain.RoleOperator},
		{domain.RoleAdministrator, domain.RoleTechnical},
	}
)

// Service resolves a role into the capability set carried by an Actor.
type Service struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	logger   *zap.Logger
}

// NewService builds the enforcer. With an empty policyPath the built-in role table is used;
// otherwise policies are loaded from a casbin CSV file ("p, role, capability" / "g, role, parent").
func NewService(policyPath string, logger *zap.Logger) (*Service, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to parse model: %w", err)
	}

	var enf *casbin.Enforcer
	if policyPath != "" {
		enf, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		enf, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}

	if policyPath == "" {
		if _, err := enf.AddPolicies(defaultPolicies); err != nil {
			return nil, fmt.Errorf("authz: failed to add policies: %w", err)
		}
		if _, err := enf.AddGroupingPolicies(defaultGrouping); err != nil {
			return nil, fmt.Errorf("authz: failed to add role grouping: %w", err)
		}
	}

	return &Service{enforcer: enf, logger: logger}, nil
}

// Capabilities lists what role may do. Unknown roles get nothing.
func (s *Service) Capabilities(role string) []domain.Capability {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Capability
	for _, c := range domain.AllCapabilities {
		ok, err := s.enforcer.Enforce(role, string(c))
		if err != nil {
			s.logger.Warn("authz enforce failed", zap.String("role", role), zap.String("capability", string(c)), zap.Error(err))
			continue
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// Actor builds the explicit actor context for id acting under role.
func (s *Service) Actor(id, role string) domain.Actor {
	return domain.NewActor(strings.TrimSpace(id), strings.ToLower(strings.TrimSpace(role)), s.Capabilities(role)...)
}

// ReloadPolicy re-reads the policy file when one is configured.
func (s *Service) ReloadPolicy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	return nil
}
