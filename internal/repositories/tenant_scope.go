package repositories

import (
	"context"

	"relatorios/internal/common"
	"relatorios/internal/docstore"
	"relatorios/internal/models"
	"relatorios/internal/session"

	"github.com/rs/zerolog"
)

// Tenant-rooted collection layout: tenants/{tenantId}/{collection}/{id}.
const (
	TenantsRoot        = "tenants"
	CollectionPedidos  = "pedidos"
	CollectionClientes = "clientes"
)

// TenantResolver resolves the caller's tenant. *session.Context implements it.
type TenantResolver interface {
	RequireTenantContext(ctx context.Context) (session.TenantContext, error)
}

// CollectionPath returns tenants/{tenantID}/{collection}.
func CollectionPath(tenantID, collection string) (string, error) {
	return docstore.Join(TenantsRoot, tenantID, collection)
}

// DocumentPath returns tenants/{tenantID}/{collection}/{id}.
func DocumentPath(tenantID, collection, id string) (string, error) {
	return docstore.Join(TenantsRoot, tenantID, collection, id)
}

// tenantScope holds what every tenant repository shares. The tenant always
// comes from the resolver, never from caller input.
type tenantScope struct {
	resolver TenantResolver
	store    docstore.Store
	log      zerolog.Logger
}

func (s *tenantScope) resolve(ctx context.Context) (session.TenantContext, error) {
	tc, err := s.resolver.RequireTenantContext(ctx)
	if err != nil {
		return session.TenantContext{}, &common.TenantContextError{Err: err}
	}
	return tc, nil
}

func (s *tenantScope) get(ctx context.Context, tc session.TenantContext, collection, id string) (*docstore.Document, error) {
	path, err := DocumentPath(tc.TenantID, collection, id)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, path)
}

func (s *tenantScope) query(ctx context.Context, tc session.TenantContext, collection string, q docstore.Query) ([]docstore.Document, error) {
	path, err := CollectionPath(tc.TenantID, collection)
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, path, q)
}

func (s *tenantScope) add(ctx context.Context, tc session.TenantContext, collection string, data models.Fields) (string, error) {
	path, err := CollectionPath(tc.TenantID, collection)
	if err != nil {
		return "", err
	}
	payload := Enrich(data, tc.Identity.UID, tc.TenantID, true)
	id, err := s.store.Add(ctx, path, payload)
	if err != nil {
		return "", err
	}
	s.log.Debug().Str("tenant_id", tc.TenantID).Str("collection", collection).Str("id", id).Msg("document created")
	return id, nil
}

func (s *tenantScope) mergeWrite(ctx context.Context, tc session.TenantContext, collection, id string, data models.Fields, isCreate bool) error {
	path, err := DocumentPath(tc.TenantID, collection, id)
	if err != nil {
		return err
	}
	payload := Enrich(data, tc.Identity.UID, tc.TenantID, isCreate)
	if err := s.store.Set(ctx, path, payload, true); err != nil {
		return err
	}
	s.log.Debug().Str("tenant_id", tc.TenantID).Str("collection", collection).Str("id", id).Bool("create", isCreate).Msg("document merged")
	return nil
}

func (s *tenantScope) remove(ctx context.Context, tc session.TenantContext, collection, id string) error {
	path, err := DocumentPath(tc.TenantID, collection, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, path); err != nil {
		return err
	}
	s.log.Debug().Str("tenant_id", tc.TenantID).Str("collection", collection).Str("id", id).Msg("document deleted")
	return nil
}
