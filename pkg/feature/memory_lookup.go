package feature

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// MemoryLookup is an in-memory Lookup implementation for tests and
// simple deployments. It is seeded at construction and read-only
// afterwards from the pipeline's perspective; Seed methods exist for the
// surrounding service and for tests.
type MemoryLookup struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
	flags   map[string]map[string]bool // tenant id -> flag name -> enabled
}

// NewMemoryLookup creates a lookup seeded with the given tenants.
func NewMemoryLookup(tenants ...*Tenant) (*MemoryLookup, error) {
	l := &MemoryLookup{
		tenants: make(map[string]*Tenant),
		flags:   make(map[string]map[string]bool),
	}

	for _, tenant := range tenants {
		if tenant == nil {
			continue
		}
		if tenant.ID == "" {
			return nil, errors.Join(ErrInvalidTenant, errors.New("tenant id cannot be empty"))
		}

		tenantCopy := *tenant
		if tenant.Platforms != nil {
			tenantCopy.Platforms = slices.Clone(tenant.Platforms)
		}
		l.tenants[tenant.ID] = &tenantCopy
	}

	return l, nil
}

// SetFlag seeds a feature flag value for a tenant.
func (l *MemoryLookup) SetFlag(tenantID, flag string, enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flags[tenantID] == nil {
		l.flags[tenantID] = make(map[string]bool)
	}
	l.flags[tenantID][flag] = enabled
}

// IsEnabled implements Lookup.
func (l *MemoryLookup) IsEnabled(ctx context.Context, tenantID, flag string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, exists := l.tenants[tenantID]; !exists {
		return false, ErrTenantNotFound
	}

	enabled, exists := l.flags[tenantID][flag]
	if !exists {
		return false, ErrFlagNotFound
	}
	return enabled, nil
}

// GetTenant implements Lookup.
func (l *MemoryLookup) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tenant, exists := l.tenants[tenantID]
	if !exists {
		return nil, ErrTenantNotFound
	}

	tenantCopy := *tenant
	if tenant.Platforms != nil {
		tenantCopy.Platforms = slices.Clone(tenant.Platforms)
	}
	return &tenantCopy, nil
}
