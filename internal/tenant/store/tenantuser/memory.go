// Package tenantuser persists tenant membership rows.
package tenantuser

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"warden/internal/tenant/models"
	id "warden/pkg/domain"
	"warden/pkg/platform/sentinel"
)

type memberKey struct {
	tenantID id.TenantID
	userID   id.UserID
}

// InMemory stores memberships in memory for tests and single-node dev.
type InMemory struct {
	mu     sync.RWMutex
	rows   map[id.TenantUserID]*models.TenantUser
	byPair map[memberKey]id.TenantUserID
}

// NewInMemory creates an empty membership store.
func NewInMemory() *InMemory {
	return &InMemory{
		rows:   make(map[id.TenantUserID]*models.TenantUser),
		byPair: make(map[memberKey]id.TenantUserID),
	}
}

// Create inserts a membership; a second row for the same (tenant, user) is rejected.
func (s *InMemory) Create(_ context.Context, tu *models.TenantUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{tu.TenantID, tu.UserID}
	if _, exists := s.byPair[key]; exists {
		return fmt.Errorf("user is already a member of tenant: %w", sentinel.ErrAlreadyUsed)
	}
	cp := *tu
	s.rows[tu.ID] = &cp
	s.byPair[key] = tu.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantUserID id.TenantUserID) (*models.TenantUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tu, ok := s.rows[tenantUserID]; ok {
		cp := *tu
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByTenantAndUser(_ context.Context, tenantID id.TenantID, userID id.UserID) (*models.TenantUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rowID, ok := s.byPair[memberKey{tenantID, userID}]; ok {
		cp := *s.rows[rowID]
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

// ListByTenant returns the tenant's memberships, oldest first.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.TenantUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TenantUser, 0)
	for _, tu := range s.rows {
		if tu.TenantID == tenantID {
			cp := *tu
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Update replaces role and status of an existing membership. Tenant and user are immutable.
func (s *InMemory) Update(_ context.Context, tu *models.TenantUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rows[tu.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Role = tu.Role
	existing.Status = tu.Status
	existing.UpdatedAt = tu.UpdatedAt
	return nil
}

// DeleteByTenant drops every membership of a tenant and reports how many went.
func (s *InMemory) DeleteByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for rowID, tu := range s.rows {
		if tu.TenantID == tenantID {
			delete(s.byPair, memberKey{tu.TenantID, tu.UserID})
			delete(s.rows, rowID)
			deleted++
		}
	}
	return deleted, nil
}
