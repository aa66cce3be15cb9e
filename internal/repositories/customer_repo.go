package repositories

import (
	"context"
	"time"

	"relatorios/internal/caching"
	"relatorios/internal/docstore"
	"relatorios/internal/models"
	"relatorios/internal/session"

	"github.com/rs/zerolog"
)

type CustomerRepository interface {
	FindByNameUpper(ctx context.Context, nameUpper string) (*models.Customer, error)
	Get(ctx context.Context, id string) (*models.Customer, error)
	Upsert(ctx context.Context, name, address string, isExempt bool, extras models.CustomerExtras) error
}

type customerRepo struct {
	tenantScope
	cache caching.CacheService
	ttl   time.Duration
}

// NewCustomerRepo builds the customer repository. cache may be nil.
func NewCustomerRepo(resolver TenantResolver, store docstore.Store, cache caching.CacheService, ttl time.Duration, log zerolog.Logger) CustomerRepository {
	return &customerRepo{
		tenantScope: tenantScope{
			resolver: resolver,
			store:    store,
			log:      log.With().Str("repository", CollectionClientes).Logger(),
		},
		cache: cache,
		ttl:   ttl,
	}
}

func (r *customerRepo) FindByNameUpper(ctx context.Context, nameUpper string) (*models.Customer, error) {
	tc, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return r.findByNameUpper(ctx, tc, upper(nameUpper))
}

func (r *customerRepo) Get(ctx context.Context, id string) (*models.Customer, error) {
	tc, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := r.get(ctx, tc, CollectionClientes, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return models.CustomerFromFields(doc.ID, doc.Data), nil
}

// Upsert saves a customer keyed by its normalized name. An empty name is
// nothing to save and touches neither the store nor the cache.
func (r *customerRepo) Upsert(ctx context.Context, name, address string, isExempt bool, extras models.CustomerExtras) error {
	tc, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	nomeUpper := upper(name)
	if nomeUpper == "" {
		return nil
	}

	found, err := r.findByNameUpper(ctx, tc, nomeUpper)
	if err != nil {
		return err
	}

	base := models.Fields{
		models.FieldNome:        nomeUpper,
		models.FieldNomeUpper:   nomeUpper,
		models.FieldEndereco:    upper(address),
		models.FieldIsentoFrete: isExempt,
		models.FieldCNPJ:        extras.CNPJ,
		models.FieldIE:          extras.IE,
		models.FieldCEP:         extras.CEP,
		models.FieldContato:     extras.Contato,
	}

	if found != nil {
		return r.mergeWrite(ctx, tc, CollectionClientes, found.ID, base, false)
	}

	base[models.FieldCompras] = 0
	id, err := r.add(ctx, tc, CollectionClientes, base)
	if err != nil {
		return err
	}
	r.remember(ctx, tc, nomeUpper, id)
	return nil
}

func (r *customerRepo) findByNameUpper(ctx context.Context, tc session.TenantContext, nomeUpper string) (*models.Customer, error) {
	if c := r.cached(ctx, tc, nomeUpper); c != nil {
		return c, nil
	}

	q := docstore.Query{}.Where(models.FieldNomeUpper, docstore.OpEqual, nomeUpper).Take(1)
	docs, err := r.query(ctx, tc, CollectionClientes, q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	c := models.CustomerFromFields(docs[0].ID, docs[0].Data)
	r.remember(ctx, tc, nomeUpper, c.ID)
	return c, nil
}

// cached resolves nomeUpper through the lookup cache. The hit is only
// trusted once the document is read back under the same key.
func (r *customerRepo) cached(ctx context.Context, tc session.TenantContext, nomeUpper string) *models.Customer {
	if r.cache == nil {
		return nil
	}
	id, err := r.cache.GetCustomerID(ctx, tc.TenantID, nomeUpper)
	if err != nil {
		r.log.Warn().Err(err).Str("tenant_id", tc.TenantID).Msg("customer cache lookup failed")
		return nil
	}
	if id == "" {
		return nil
	}
	doc, err := r.get(ctx, tc, CollectionClientes, id)
	if err != nil {
		// the entry may still be good; let the query decide
		r.log.Warn().Err(err).Str("tenant_id", tc.TenantID).Str("customer_id", id).Msg("cached customer read failed")
		return nil
	}
	if doc != nil {
		if c := models.CustomerFromFields(doc.ID, doc.Data); c.NomeUpper == nomeUpper {
			return c
		}
	}
	if err := r.cache.DeleteCustomer(ctx, tc.TenantID, nomeUpper); err != nil {
		r.log.Warn().Err(err).Str("tenant_id", tc.TenantID).Msg("stale customer cache entry not removed")
	}
	return nil
}

func (r *customerRepo) remember(ctx context.Context, tc session.TenantContext, nomeUpper, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetCustomerID(ctx, tc.TenantID, nomeUpper, id, r.ttl); err != nil {
		r.log.Warn().Err(err).Str("tenant_id", tc.TenantID).Msg("customer cache write failed")
	}
}
