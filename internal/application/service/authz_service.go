package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
)

// Principal is the acting staff member for a request
type Principal struct {
	UserID   uuid.UUID
	Name     string
	Roles    []string
	Location string
}

// PermissionChecker answers hasPermission(role, action)
type PermissionChecker interface {
	HasPermission(role, action string) bool
}

// PermissionSnapshotCache shares the loaded role table between instances
type PermissionSnapshotCache interface {
	Load(ctx context.Context) (map[string][]string, bool, error)
	Store(ctx context.Context, table map[string][]string) error
}

// RolePermissionTable is the role -> permission mapping, loaded from the
// database rather than compiled in. Safe for concurrent use.
type RolePermissionTable struct {
	roleRepo repository.RoleRepository
	cache    PermissionSnapshotCache

	mu    sync.RWMutex
	table map[string]map[string]bool
}

// NewRolePermissionTable creates an empty table; call Load before use.
// cache may be nil.
func NewRolePermissionTable(roleRepo repository.RoleRepository, cache PermissionSnapshotCache) *RolePermissionTable {
	return &RolePermissionTable{
		roleRepo: roleRepo,
		cache:    cache,
		table:    map[string]map[string]bool{},
	}
}

// Load fills the table from the shared cache, falling back to the database
func (t *RolePermissionTable) Load(ctx context.Context) error {
	if t.cache != nil {
		snapshot, ok, err := t.cache.Load(ctx)
		if err != nil {
			slog.Warn("permission cache unavailable, loading from database", "error", err)
		} else if ok {
			t.Replace(snapshot)
			return nil
		}
	}
	return t.Refresh(ctx)
}

// Refresh reloads the table from the database and republishes it to the cache
func (t *RolePermissionTable) Refresh(ctx context.Context) error {
	roles, err := t.roleRepo.List(ctx)
	if err != nil {
		return err
	}

	snapshot := make(map[string][]string, len(roles))
	for _, role := range roles {
		perms := make([]string, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			perms = append(perms, p.Name)
		}
		snapshot[role.Name] = perms
	}
	t.Replace(snapshot)

	if t.cache != nil {
		if err := t.cache.Store(ctx, snapshot); err != nil {
			slog.Warn("failed to publish permission table", "error", err)
		}
	}
	slog.Info("permission table loaded", "roles", len(snapshot))
	return nil
}

// Replace swaps in a new table
func (t *RolePermissionTable) Replace(snapshot map[string][]string) {
	table := make(map[string]map[string]bool, len(snapshot))
	for role, perms := range snapshot {
		set := make(map[string]bool, len(perms))
		for _, p := range perms {
			set[p] = true
		}
		table[strings.ToLower(role)] = set
	}

	t.mu.Lock()
	t.table = table
	t.mu.Unlock()
}

// HasPermission reports whether role holds action. Role names are matched
// case-insensitively.
func (t *RolePermissionTable) HasPermission(role, action string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.table[strings.ToLower(role)][action]
}

// Permissions returns the permissions held by any of roles
func (t *RolePermissionTable) Permissions(roles []string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	for _, role := range roles {
		for p := range t.table[strings.ToLower(role)] {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// AuthorizationGate decides what a principal may do. A principal holds a
// permission when any of its roles does.
type AuthorizationGate struct {
	perms PermissionChecker
}

// NewAuthorizationGate creates a new authorization gate
func NewAuthorizationGate(perms PermissionChecker) *AuthorizationGate {
	return &AuthorizationGate{perms: perms}
}

// Can reports whether p holds action through any role
func (g *AuthorizationGate) Can(p Principal, action string) bool {
	for _, role := range p.Roles {
		if g.perms.HasPermission(role, action) {
			return true
		}
	}
	return false
}

// CanOverrideArrears reports whether p may apply a delta larger than the
// outstanding balance. Callers consult it only after the override was
// explicitly requested.
func (g *AuthorizationGate) CanOverrideArrears(p Principal) bool {
	return g.Can(p, enum.PermOverrideArrears)
}

// CanVoidRestore reports whether p may toggle receipt status
func (g *AuthorizationGate) CanVoidRestore(p Principal) bool {
	return g.Can(p, enum.PermVoidRestore)
}
