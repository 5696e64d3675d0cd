package services_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techypad/internal/domain"
	"techypad/internal/pricing"
	"techypad/internal/repos"
	"techypad/internal/services"
)

func TestCartHoldsOneLine(t *testing.T) {
	reg := pricing.WithSalePrice(6499)
	c := services.NewCart(reg)

	assert.True(t, c.AddItem(domain.CartItem{ID: pricing.ProductID, Price: 1}))
	assert.False(t, c.AddItem(domain.CartItem{ID: pricing.ProductID}))
	assert.Equal(t, 1, c.ItemCount())
	assert.True(t, c.IsInCart(pricing.ProductID))

	line := c.Line()
	require.NotNil(t, line)
	assert.Equal(t, int64(6499), line.Price)
	assert.Equal(t, "Techy Pad", line.Name)

	c.RemoveItem(pricing.ProductID)
	assert.True(t, c.Empty())
	assert.Nil(t, c.Line())
	assert.Equal(t, int64(0), c.TotalPrice())
}

func TestCartProperties(t *testing.T) {
	reg := pricing.WithSalePrice(6499)
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("unregistered ids never enter the cart", prop.ForAll(
		func(id string) bool {
			if id == pricing.ProductID {
				return true
			}
			c := services.NewCart(reg)
			return !c.AddItem(domain.CartItem{ID: id, Price: 1}) && c.Empty() && c.ItemCount() == 0
		},
		gen.AnyString(),
	))

	properties.Property("total comes from the registry, not the stored price", prop.ForAll(
		func(stored int64) bool {
			c := services.NewCart(reg, domain.CartItem{ID: pricing.ProductID, Price: stored, Quantity: 1})
			return c.TotalPrice() == 6499
		},
		gen.Int64(),
	))

	properties.Property("a full cart ignores further adds", prop.ForAll(
		func(id string) bool {
			c := services.NewCart(reg)
			c.AddItem(domain.CartItem{ID: pricing.ProductID})
			before := c.Items()
			c.AddItem(domain.CartItem{ID: id})
			after := c.Items()
			return len(after) == 1 && after[0] == before[0]
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestCartServicePersistsPerSession(t *testing.T) {
	db := memdb(t)
	svc := services.NewCartService(repos.NewCartRepo(db), pricing.WithSalePrice(6499))
	ctx := context.Background()

	changed, err := svc.Add(ctx, "sid-a", pricing.ProductID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Add(ctx, "sid-a", pricing.ProductID)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = svc.Add(ctx, "sid-b", "not-a-product")
	require.NoError(t, err)
	assert.False(t, changed)

	a, err := svc.Load(ctx, "sid-a")
	require.NoError(t, err)
	assert.Equal(t, 1, a.ItemCount())

	b, err := svc.Load(ctx, "sid-b")
	require.NoError(t, err)
	assert.True(t, b.Empty())

	require.NoError(t, svc.Remove(ctx, "sid-a", pricing.ProductID))
	a, err = svc.Load(ctx, "sid-a")
	require.NoError(t, err)
	assert.True(t, a.Empty())
}
