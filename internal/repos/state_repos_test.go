package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techypad/internal/domain"
	"techypad/internal/repos"
)

func TestOpenDBLeavesUsersEmpty(t *testing.T) {
	db := memdb(t)
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users`))
	assert.Zero(t, n)

	_, err := repos.NewUserRepo(db).ByEmail(context.Background(), "ops@techypad.test")
	assert.Error(t, err)
}

func TestSeedDemoUsersIsIdempotent(t *testing.T) {
	db := memdb(t)
	require.NoError(t, repos.SeedDemoUsers(db))
	require.NoError(t, repos.SeedDemoUsers(db))
	users := repos.NewUserRepo(db)
	ctx := context.Background()

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 2, n)

	ops, err := users.ByEmail(ctx, "OPS@techypad.test")
	require.NoError(t, err)
	assert.True(t, ops.Confirmed())
	opsUser := ops.User()
	assert.True(t, opsUser.HasRole(domain.RoleAdmin))

	c, err := users.ByEmail(ctx, "customer@techypad.test")
	require.NoError(t, err)
	assert.Empty(t, c.User().Roles)

	err = users.Create(ctx, repos.UserRow{ID: "x", Email: "Customer@TechyPad.test", Hash: "h", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, repos.ErrEmailTaken)
}

func TestCartRepoUpsertAndDelete(t *testing.T) {
	r := repos.NewCartRepo(memdb(t))
	ctx := context.Background()

	it, err := r.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, it)

	require.NoError(t, r.Save(ctx, "sid-1", &domain.CartItem{ID: "techypad-pro", Name: "Techy Pad", Price: 6499, Quantity: 1}))
	require.NoError(t, r.Save(ctx, "sid-1", &domain.CartItem{ID: "techypad-pro", Name: "Techy Pad", Price: 7499, Quantity: 1}))

	it, err = r.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, int64(7499), it.Price)

	require.NoError(t, r.Save(ctx, "sid-1", nil))
	it, err = r.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, it)
}

func TestOrderedUsersIsCaseInsensitiveSet(t *testing.T) {
	r := repos.NewOrderedUsersRepo(memdb(t))
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "Asha@Example.com"))
	require.NoError(t, r.Add(ctx, "asha@example.com "))

	ok, err := r.Has(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"asha@example.com"}, list)

	removed, err := r.Remove(ctx, "asha@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.Remove(ctx, "asha@example.com")
	require.NoError(t, err)
	assert.False(t, removed)

	ok, err = r.Has(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminSessionsExpire(t *testing.T) {
	r := repos.NewAdminSessionRepo(memdb(t))
	ctx := context.Background()

	id, err := r.Create(ctx, "ops@techypad.test", time.Hour)
	require.NoError(t, err)
	subject, err := r.Subject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ops@techypad.test", subject)

	expired, err := r.Create(ctx, "ops@techypad.test", -time.Minute)
	require.NoError(t, err)
	subject, err = r.Subject(ctx, expired)
	require.NoError(t, err)
	assert.Empty(t, subject)

	require.NoError(t, r.Delete(ctx, id))
	subject, err = r.Subject(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, subject)
}
