package models

import (
	"strings"

	id "warden/pkg/domain"
)

// RefMethod says where a tenant-scoped route reads its tenant reference from.
type RefMethod string

const (
	// RefByPath reads the {tenantId} URL parameter.
	RefByPath RefMethod = "PATH"
	// RefByDomain reads the X-Tenant-Domain header, falling back to the request host.
	RefByDomain RefMethod = "DOMAIN"
)

// TenantRef identifies a tenant by id or by domain. Exactly one must be set.
type TenantRef struct {
	ID     *id.TenantID
	Domain string
}

func RefByID(tenantID id.TenantID) TenantRef {
	return TenantRef{ID: &tenantID}
}

func RefByDomainName(domain string) TenantRef {
	return TenantRef{Domain: NormalizeDomain(domain)}
}

func (r TenantRef) HasID() bool {
	return r.ID != nil
}

func (r TenantRef) HasDomain() bool {
	return strings.TrimSpace(r.Domain) != ""
}

func (r TenantRef) String() string {
	switch {
	case r.HasID() && r.HasDomain():
		return "id=" + r.ID.String() + ",domain=" + r.Domain
	case r.HasID():
		return "id=" + r.ID.String()
	default:
		return "domain=" + r.Domain
	}
}
