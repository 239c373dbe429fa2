package auth

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Operation names an action gated by the policy.
type Operation string

const (
	OpTicketList         Operation = "ticket.list"
	OpTicketCreate       Operation = "ticket.create"
	OpTicketDelete       Operation = "ticket.delete"
	OpTicketUpdateStatus Operation = "ticket.update_status"
	OpTicketAssign       Operation = "ticket.assign"
	OpTicketHistory      Operation = "ticket.history"
	OpCommentList        Operation = "comment.list"
	OpCommentAdd         Operation = "comment.add"
	OpCommentEdit        Operation = "comment.edit"
	OpCommentDelete      Operation = "comment.delete"
	OpUserList           Operation = "user.list"
)

// scope limits a grant to resources the actor owns.
type scope string

const (
	scopeAny scope = "any"
	scopeOwn scope = "own"
)

type grant struct {
	role  domain.Role
	scope scope
}

func anyOf(roles ...domain.Role) []grant {
	grants := make([]grant, 0, len(roles))
	for _, role := range roles {
		grants = append(grants, grant{role: role, scope: scopeAny})
	}
	return grants
}

// permissionTable is the single source of which roles may invoke which operation.
var permissionTable = map[Operation][]grant{
	OpTicketList:         anyOf(domain.RoleUser, domain.RoleSupport, domain.RoleManager),
	OpTicketCreate:       anyOf(domain.RoleUser, domain.RoleManager),
	OpTicketDelete:       anyOf(domain.RoleManager),
	OpTicketUpdateStatus: anyOf(domain.RoleManager, domain.RoleSupport),
	OpTicketAssign:       anyOf(domain.RoleManager, domain.RoleSupport),
	OpTicketHistory:      anyOf(domain.RoleManager, domain.RoleSupport),
	OpCommentList:        anyOf(domain.RoleUser, domain.RoleSupport, domain.RoleManager),
	OpCommentAdd:         anyOf(domain.RoleUser, domain.RoleSupport, domain.RoleManager),
	OpCommentEdit: {
		{role: domain.RoleUser, scope: scopeOwn},
		{role: domain.RoleSupport, scope: scopeOwn},
		{role: domain.RoleManager, scope: scopeAny},
	},
	OpCommentDelete: {
		{role: domain.RoleUser, scope: scopeOwn},
		{role: domain.RoleSupport, scope: scopeOwn},
		{role: domain.RoleManager, scope: scopeAny},
	},
	OpUserList: anyOf(domain.RoleManager),
}

// Requests carry the actor and resource owner ids so "own" grants can compare them.
const policyModel = `
[request_definition]
r = sub, act, actor, owner

[policy_definition]
p = sub, act, scope

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act && (p.scope == "any" || r.actor == r.owner)
`

// Policy decides whether an actor may perform an operation.
type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

// NewPolicy loads the permission table into a casbin enforcer.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for op, grants := range permissionTable {
		for _, g := range grants {
			if _, err := enforcer.AddPolicy(string(g.role), string(op), string(g.scope)); err != nil {
				return nil, fmt.Errorf("failed to add policy [%s, %s, %s]: %w", g.role, op, g.scope, err)
			}
		}
	}

	return &Policy{enforcer: enforcer}, nil
}

// IsAllowed reports whether actor may perform op on a resource owned by ownerID.
// ownerID is only consulted for grants limited to owned resources; pass "" otherwise.
// Actors without an id or with an unknown role are always denied.
func (p *Policy) IsAllowed(actor domain.Actor, op Operation, ownerID string) bool {
	if actor.ID == "" || !actor.Role.Valid() {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	allowed, err := p.enforcer.Enforce(string(actor.Role), string(op), actor.ID, ownerID)
	if err != nil {
		return false
	}
	return allowed
}

// RoleGranted reports whether role holds any grant for op, regardless of ownership.
// Route guards use it to reject roles that could never perform op.
func (p *Policy) RoleGranted(role domain.Role, op Operation) bool {
	for _, g := range permissionTable[op] {
		if g.role == role {
			return true
		}
	}
	return false
}
