package repositories

import (
	"context"
	"strings"

	"relatorios/internal/common"
	"relatorios/internal/docstore"
	"relatorios/internal/models"

	"github.com/rs/zerolog"
)

type OrderRepository interface {
	List(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, data models.Fields) (string, error)
	UpsertMerge(ctx context.Context, id string, data models.Fields, isCreate bool) error
	Update(ctx context.Context, id string, data models.Fields) error
	Delete(ctx context.Context, id string) error
}

type orderRepo struct {
	tenantScope
}

func NewOrderRepo(resolver TenantResolver, store docstore.Store, log zerolog.Logger) OrderRepository {
	return &orderRepo{tenantScope{
		resolver: resolver,
		store:    store,
		log:      log.With().Str("repository", CollectionPedidos).Logger(),
	}}
}

// BuildOrderListQuery composes the store query for filter. Only the delivery
// date bounds are pushed down: a range on one field cannot be combined with
// text or equality filters on others without extra composite indexes.
func BuildOrderListQuery(filter *models.OrderFilter) docstore.Query {
	q := docstore.Query{}
	if filter == nil {
		filter = &models.OrderFilter{}
	}
	limit := common.NormalizeMaxResults(filter.MaxResults)
	if !filter.HasDateRange() {
		return q.OrderByTime(models.FieldCreatedAt, docstore.Desc).Take(limit)
	}
	if filter.DateFromISO != "" {
		q = q.Where(models.FieldDataEntregaISO, docstore.OpGreaterEqual, filter.DateFromISO)
	}
	if filter.DateToISO != "" {
		q = q.Where(models.FieldDataEntregaISO, docstore.OpLessEqual, filter.DateToISO)
	}
	return q.Order(models.FieldDataEntregaISO, docstore.Desc).Take(limit)
}

func (r *orderRepo) List(ctx context.Context, filter *models.OrderFilter) ([]*models.Order, error) {
	tc, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.OrderFilter{}
	}
	if err := validateOrderFilter(filter); err != nil {
		return nil, err
	}

	docs, err := r.query(ctx, tc, CollectionPedidos, BuildOrderListQuery(filter))
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(docs))
	for _, d := range docs {
		o := models.OrderFromFields(d.ID, d.Data)
		if matchesLocalFilters(o, filter) {
			orders = append(orders, o)
		}
	}

	r.log.Debug().
		Str("tenant_id", tc.TenantID).
		Int("fetched", len(docs)).
		Int("returned", len(orders)).
		Msg("orders listed")
	return orders, nil
}

func (r *orderRepo) Get(ctx context.Context, id string) (*models.Order, error) {
	tc, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := r.get(ctx, tc, CollectionPedidos, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return models.OrderFromFields(doc.ID, doc.Data), nil
}

func (r *orderRepo) Create(ctx context.Context, data models.Fields) (string, error) {
	tc, err := r.resolve(ctx)
	if err != nil {
		return "", err
	}
	return r.add(ctx, tc, CollectionPedidos, data)
}

func (r *orderRepo) UpsertMerge(ctx context.Context, id string, data models.Fields, isCreate bool) error {
	tc, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	return r.mergeWrite(ctx, tc, CollectionPedidos, id, data, isCreate)
}

func (r *orderRepo) Update(ctx context.Context, id string, data models.Fields) error {
	return r.UpsertMerge(ctx, id, data, false)
}

func (r *orderRepo) Delete(ctx context.Context, id string) error {
	tc, err := r.resolve(ctx)
	if err != nil {
		return err
	}
	return r.remove(ctx, tc, CollectionPedidos, id)
}

func validateOrderFilter(f *models.OrderFilter) error {
	if err := common.ValidateDateFormat(f.DateFromISO, "dateFromISO"); err != nil {
		return err
	}
	if err := common.ValidateDateFormat(f.DateToISO, "dateToISO"); err != nil {
		return err
	}
	if err := common.ValidateHourFormat(f.HourFrom, "hourFrom"); err != nil {
		return err
	}
	return common.ValidateHourFormat(f.HourTo, "hourTo")
}

// matchesLocalFilters applies the criteria the store query does not carry.
func matchesLocalFilters(o *models.Order, f *models.OrderFilter) bool {
	if needle := upper(f.CustomerNameContains); needle != "" {
		if !strings.Contains(upper(o.Cliente), needle) {
			return false
		}
	}
	if tipo := upper(f.DeliveryType); tipo != "" {
		if upper(o.Entrega.Tipo) != tipo {
			return false
		}
	}
	if f.HourFrom != "" && o.HoraEntrega < f.HourFrom {
		return false
	}
	if f.HourTo != "" && o.HoraEntrega > f.HourTo {
		return false
	}
	return true
}
