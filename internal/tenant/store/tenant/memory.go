package tenant

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

// ErrNotFound is returned when a tenant is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores tenants in memory for tests and single-node dev.
type InMemory struct {
	mu        sync.RWMutex
	tenants   map[id.TenantID]*models.Tenant
	domainIdx map[string]id.TenantID
}

// NewInMemory creates an in-memory tenant store.
func NewInMemory() *InMemory {
	return &InMemory{
		tenants:   make(map[id.TenantID]*models.Tenant),
		domainIdx: make(map[string]id.TenantID),
	}
}

// CreateIfDomainAvailable atomically creates the tenant if no other tenant owns the domain.
func (s *InMemory) CreateIfDomainAvailable(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	domain := models.NormalizeDomain(t.Domain)
	if _, exists := s.domainIdx[domain]; exists {
		return fmt.Errorf("tenant domain must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *t
	cp.Domain = domain
	s.tenants[t.ID] = &cp
	s.domainIdx[domain] = t.ID
	return nil
}

// FindByID retrieves a tenant by its UUID.
func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tenants[tenantID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

// FindByDomain retrieves a tenant by domain (case-insensitive).
func (s *InMemory) FindByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tenantID, ok := s.domainIdx[models.NormalizeDomain(domain)]; ok {
		cp := *s.tenants[tenantID]
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns all tenants ordered by domain.
func (s *InMemory) List(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

// Count returns the total number of tenants.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants), nil
}

// Update replaces an existing tenant, keeping the domain index consistent.
func (s *InMemory) Update(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[t.ID]
	if !ok {
		return ErrNotFound
	}
	domain := models.NormalizeDomain(t.Domain)
	if owner, taken := s.domainIdx[domain]; taken && owner != t.ID {
		return fmt.Errorf("tenant domain must be unique: %w", sentinel.ErrAlreadyUsed)
	}
	delete(s.domainIdx, existing.Domain)
	cp := *t
	cp.Domain = domain
	s.tenants[t.ID] = &cp
	s.domainIdx[domain] = t.ID
	return nil
}

// Delete removes a tenant.
func (s *InMemory) Delete(_ context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[tenantID]
	if !ok {
		return ErrNotFound
	}
	delete(s.domainIdx, existing.Domain)
	delete(s.tenants, tenantID)
	return nil
}
