package viewstate

import (
	"sync"
	"testing"

	"relatorios/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []*models.Order {
	return []*models.Order{
		models.OrderFromFields("a", models.Fields{"cliente": "ACME", "total": 10}),
		models.OrderFromFields("b", models.Fields{"cliente": "BETA", "entrega": map[string]interface{}{"tipo": "ENTREGA"}}),
		models.OrderFromFields("c", models.Fields{"cliente": "GAMA"}),
	}
}

func ids(orders []*models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestSetAllReplaces(t *testing.T) {
	c := New(nil)
	c.SetAll(sample())
	c.SetAll(sample()[:1])

	assert.Equal(t, []string{"a"}, ids(c.All()))
	assert.Equal(t, 1, c.Len())
}

func TestPatchOneMergesShallow(t *testing.T) {
	c := New(nil)
	c.SetAll(sample())

	c.PatchOne("b", models.Fields{"cliente": "BETA LTDA", "horaEntrega": "10:00"})

	got := c.All()[1]
	assert.Equal(t, "BETA LTDA", got.Cliente)
	assert.Equal(t, "10:00", got.HoraEntrega)
	assert.Equal(t, "ENTREGA", got.Entrega.Tipo)
	assert.Equal(t, []string{"a", "b", "c"}, ids(c.All()))
}

func TestPatchOneAbsentIsNoop(t *testing.T) {
	c := New(nil)
	c.SetAll(sample())
	before := c.All()

	c.PatchOne("missing", models.Fields{"cliente": "X"})

	after := c.All()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Same(t, before[i], after[i])
	}
}

func TestSnapshotsAreNotMutated(t *testing.T) {
	c := New(nil)
	c.SetAll(sample())
	snap := c.All()

	c.PatchOne("a", models.Fields{"cliente": "CHANGED"})
	c.RemoveOne("c")

	assert.Equal(t, "ACME", snap[0].Cliente)
	assert.Len(t, snap, 3)
}

func TestRemoveOne(t *testing.T) {
	c := New(nil)
	c.SetAll(sample())

	c.RemoveOne("b")
	assert.Equal(t, []string{"a", "c"}, ids(c.All()))

	c.RemoveOne("missing")
	assert.Equal(t, 2, c.Len())
}

func TestRenderAfterEveryMutation(t *testing.T) {
	var renders [][]string
	c := New(func(orders []*models.Order) {
		renders = append(renders, ids(orders))
	})

	c.SetAll(sample())
	c.PatchOne("a", models.Fields{"total": 20})
	c.RemoveOne("a")
	c.All()

	assert.Equal(t, [][]string{
		{"a", "b", "c"},
		{"a", "b", "c"},
		{"b", "c"},
	}, renders)
}

func TestRenderMayReadCache(t *testing.T) {
	var c *Cache
	lens := []int{}
	c = New(func([]*models.Order) { lens = append(lens, c.Len()) })

	c.SetAll(sample())
	assert.Equal(t, []int{3}, lens)
}

func TestConcurrentUse(t *testing.T) {
	c := New(nil)
	c.SetAll(sample())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.PatchOne("a", models.Fields{"total": i})
			_ = c.All()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, c.Len())
}
