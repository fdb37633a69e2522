package storage

import "context"

type tenantKey struct{}

// WithTenant scopes ctx to tenant.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// TenantFrom returns the tenant of ctx, or "" in single-tenant mode.
func TenantFrom(ctx context.Context) string {
	t, _ := ctx.Value(tenantKey{}).(string)
	return t
}

// Visible reports whether an entry owned by tenant may be read under ctx.
// An unscoped context reads every tenant.
func Visible(ctx context.Context, tenant string) bool {
	t := TenantFrom(ctx)
	return t == "" || t == tenant
}
