package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"relatorios/internal/common"
	"relatorios/internal/docstore"
	"relatorios/internal/models"
	"relatorios/testhelpers"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrderRepoTestSuite struct {
	suite.Suite
	mem     *docstore.MemStore
	store   *testhelpers.CountingStore
	repo    OrderRepository
	context context.Context
}

func (suite *OrderRepoTestSuite) SetupTest() {
	suite.mem = testhelpers.NewMemStore()
	suite.store = testhelpers.NewCountingStore(suite.mem)
	sess := testhelpers.SignedInSession(suite.T(), "u1", "t1", "staff")
	suite.repo = NewOrderRepo(sess, suite.store, zerolog.Nop())
	suite.context = context.Background()
}

func TestOrderRepoTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepoTestSuite))
}

func (suite *OrderRepoTestSuite) seed(tenant, id string, data models.Fields) {
	require.NoError(suite.T(), suite.mem.Set(suite.context, "tenants/"+tenant+"/pedidos/"+id, data, false))
}

func orderIDs(orders []*models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 8, 0, 0, 0, time.UTC)
}

func (suite *OrderRepoTestSuite) TestList_DateRange() {
	suite.seed("t1", "dec", models.Fields{"dataEntregaISO": "2024-12-31", "cliente": "A"})
	suite.seed("t1", "jan", models.Fields{"dataEntregaISO": "2025-01-15", "cliente": "B"})
	suite.seed("t1", "feb", models.Fields{"dataEntregaISO": "2025-02-01", "cliente": "C"})

	orders, err := suite.repo.List(suite.context, &models.OrderFilter{DateFromISO: "2025-01-01", DateToISO: "2025-01-31"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"jan"}, orderIDs(orders))
	assert.Equal(suite.T(), "B", orders[0].Cliente)
}

func (suite *OrderRepoTestSuite) TestList_SingleBound() {
	suite.seed("t1", "dec", models.Fields{"dataEntregaISO": "2024-12-31"})
	suite.seed("t1", "jan", models.Fields{"dataEntregaISO": "2025-01-15"})
	suite.seed("t1", "feb", models.Fields{"dataEntregaISO": "2025-02-01"})

	orders, err := suite.repo.List(suite.context, &models.OrderFilter{DateFromISO: "2025-01-01"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"feb", "jan"}, orderIDs(orders))

	orders, err = suite.repo.List(suite.context, &models.OrderFilter{DateToISO: "2025-01-15"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"jan", "dec"}, orderIDs(orders))
}

func (suite *OrderRepoTestSuite) TestList_NoDatesOrdersByCreation() {
	suite.seed("t1", "old", models.Fields{"createdAt": day(1)})
	suite.seed("t1", "new", models.Fields{"createdAt": day(3)})
	suite.seed("t1", "mid", models.Fields{"createdAt": day(2)})

	orders, err := suite.repo.List(suite.context, nil)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"new", "mid", "old"}, orderIDs(orders))

	calls := suite.store.Calls()
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), "tenants/t1/pedidos", calls[0].Path)
	assert.Equal(suite.T(), common.DefaultMaxResults, calls[0].Query.Limit)
}

func (suite *OrderRepoTestSuite) TestList_MaxResults() {
	for i := 1; i <= 5; i++ {
		suite.seed("t1", string(rune('a'+i)), models.Fields{"createdAt": day(i)})
	}

	orders, err := suite.repo.List(suite.context, &models.OrderFilter{MaxResults: 2})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), orders, 2)
}

func (suite *OrderRepoTestSuite) TestList_LocalFilters() {
	suite.seed("t1", "o1", models.Fields{"createdAt": day(4), "cliente": "Padaria São João", "horaEntrega": "09:00", "entrega": map[string]interface{}{"tipo": "ENTREGA"}})
	suite.seed("t1", "o2", models.Fields{"createdAt": day(3), "cliente": "Mercado Central", "horaEntrega": "10:30", "entrega": map[string]interface{}{"tipo": "retirada"}})
	suite.seed("t1", "o3", models.Fields{"createdAt": day(2), "cliente": "JOÃO E FILHOS", "horaEntrega": "14:00", "entrega": map[string]interface{}{"tipo": "Entrega"}})
	suite.seed("t1", "o4", models.Fields{"createdAt": day(1), "cliente": "Bar do Zé"})

	cases := []struct {
		name   string
		filter models.OrderFilter
		want   []string
	}{
		{"customer contains, case-insensitive", models.OrderFilter{CustomerNameContains: "joão"}, []string{"o1", "o3"}},
		{"delivery type exact", models.OrderFilter{DeliveryType: "entrega"}, []string{"o1", "o3"}},
		{"delivery type is not a substring match", models.OrderFilter{DeliveryType: "entreg"}, []string{}},
		{"both", models.OrderFilter{CustomerNameContains: "central", DeliveryType: "RETIRADA"}, []string{"o2"}},
		{"hour window", models.OrderFilter{HourFrom: "09:30", HourTo: "14:00"}, []string{"o2", "o3"}},
		{"no criteria", models.OrderFilter{}, []string{"o1", "o2", "o3", "o4"}},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			orders, err := suite.repo.List(suite.context, &tc.filter)
			require.NoError(suite.T(), err)
			assert.Equal(suite.T(), tc.want, orderIDs(orders))
		})
	}
}

func (suite *OrderRepoTestSuite) TestList_InvalidBounds() {
	_, err := suite.repo.List(suite.context, &models.OrderFilter{DateFromISO: "15/01/2025"})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidDate)

	_, err = suite.repo.List(suite.context, &models.OrderFilter{HourTo: "9h"})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidHour)

	assert.Empty(suite.T(), suite.store.Calls())
}

func (suite *OrderRepoTestSuite) TestList_TenantIsolation() {
	suite.seed("t1", "mine", models.Fields{"createdAt": day(1)})
	suite.seed("t2", "theirs", models.Fields{"createdAt": day(2)})

	orders, err := suite.repo.List(suite.context, nil)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"mine"}, orderIDs(orders))

	got, err := suite.repo.Get(suite.context, "theirs")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func (suite *OrderRepoTestSuite) TestCreate_StampsTenantAndAudit() {
	id, err := suite.repo.Create(suite.context, models.Fields{"cliente": "ACME"})
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), id)

	doc, err := suite.mem.Get(suite.context, "tenants/t1/pedidos/"+id)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), doc)
	assert.Equal(suite.T(), map[string]interface{}{
		"cliente":   "ACME",
		"tenantId":  "t1",
		"createdBy": "u1",
		"updatedBy": "u1",
		"createdAt": testhelpers.FixedNow,
		"updatedAt": testhelpers.FixedNow,
	}, doc.Data)

	order, err := suite.repo.Get(suite.context, id)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "t1", order.TenantID)
	assert.Equal(suite.T(), testhelpers.FixedNow, order.CreatedAt)
}

func (suite *OrderRepoTestSuite) TestUpdate_PreservesCreationAndOtherFields() {
	suite.seed("t1", "o1", models.Fields{
		"tenantId":  "t1",
		"cliente":   "ACME",
		"total":     10,
		"createdAt": day(1),
		"createdBy": "creator",
	})

	require.NoError(suite.T(), suite.repo.Update(suite.context, "o1", models.Fields{"total": 25}))

	doc, err := suite.mem.Get(suite.context, "tenants/t1/pedidos/o1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "ACME", doc.Data["cliente"])
	assert.Equal(suite.T(), 25, doc.Data["total"])
	assert.Equal(suite.T(), day(1), doc.Data["createdAt"])
	assert.Equal(suite.T(), "creator", doc.Data["createdBy"])
	assert.Equal(suite.T(), "u1", doc.Data["updatedBy"])
	assert.Equal(suite.T(), testhelpers.FixedNow, doc.Data["updatedAt"])

	calls := suite.store.Calls()
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), "set", calls[0].Op)
	assert.True(suite.T(), calls[0].Merge)
}

func (suite *OrderRepoTestSuite) TestUpsertMerge_Create() {
	require.NoError(suite.T(), suite.repo.UpsertMerge(suite.context, "fixed-id", models.Fields{"cliente": "ACME"}, true))

	order, err := suite.repo.Get(suite.context, "fixed-id")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), order)
	assert.Equal(suite.T(), "u1", order.CreatedBy)
	assert.Equal(suite.T(), "ACME", order.Cliente)
}

func (suite *OrderRepoTestSuite) TestDelete() {
	suite.seed("t1", "o1", models.Fields{"cliente": "ACME"})

	require.NoError(suite.T(), suite.repo.Delete(suite.context, "o1"))

	got, err := suite.repo.Get(suite.context, "o1")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func (suite *OrderRepoTestSuite) TestBadID() {
	err := suite.repo.Update(suite.context, "a/b", models.Fields{})
	assert.ErrorIs(suite.T(), err, docstore.ErrInvalidPath)
	assert.Empty(suite.T(), suite.store.Calls())
}

func (suite *OrderRepoTestSuite) TestStoreErrorsPropagateUnchanged() {
	denied := errors.New("permission-denied")
	suite.store.Err = denied

	_, err := suite.repo.List(suite.context, nil)
	assert.Same(suite.T(), denied, err)
	_, err = suite.repo.Create(suite.context, models.Fields{})
	assert.Same(suite.T(), denied, err)
	assert.Same(suite.T(), denied, suite.repo.Update(suite.context, "o1", models.Fields{}))
	assert.Same(suite.T(), denied, suite.repo.Delete(suite.context, "o1"))
}

func TestOrderRepo_MissingTenant(t *testing.T) {
	sess := testhelpers.SignedInSession(t, "u1", "", "staff")
	store := testhelpers.NewCountingStore(testhelpers.NewMemStore())
	repo := NewOrderRepo(sess, store, zerolog.Nop())
	ctx := context.Background()

	_, err := repo.List(ctx, nil)
	var tce *common.TenantContextError
	require.ErrorAs(t, err, &tce)
	assert.ErrorIs(t, err, common.ErrMissingTenant)

	_, err = repo.Create(ctx, models.Fields{"cliente": "ACME"})
	assert.ErrorIs(t, err, common.ErrMissingTenant)
	assert.ErrorIs(t, repo.Delete(ctx, "o1"), common.ErrMissingTenant)

	assert.Empty(t, store.Calls())
}

func TestBuildOrderListQuery(t *testing.T) {
	q := BuildOrderListQuery(&models.OrderFilter{DateFromISO: "2025-01-01", DateToISO: "2025-01-31", CustomerNameContains: "x", DeliveryType: "y"})
	assert.Equal(t, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "dataEntregaISO", Op: docstore.OpGreaterEqual, Value: "2025-01-01"},
			{Field: "dataEntregaISO", Op: docstore.OpLessEqual, Value: "2025-01-31"},
		},
		OrderBy:   "dataEntregaISO",
		Direction: docstore.Desc,
		Limit:     1000,
	}, q)

	q = BuildOrderListQuery(&models.OrderFilter{MaxResults: 50})
	assert.Equal(t, docstore.Query{OrderBy: "createdAt", Direction: docstore.Desc, OrderTime: true, Limit: 50}, q)

	assert.Equal(t, BuildOrderListQuery(&models.OrderFilter{}), BuildOrderListQuery(nil))
}
