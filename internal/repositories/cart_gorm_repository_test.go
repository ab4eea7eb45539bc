package repositories_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_GetOrCreateActiveIsUnique(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "cart@example.com")

	first, err := repo.GetOrCreateActive(ctx, user.ID)
	require.NoError(t, err)
	second, err := repo.GetOrCreateActive(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Table("carts").Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCartRepository_FindActiveMissing(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)

	_, err := repo.FindActive(context.Background(), 42)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCartRepository_AddItemMerges(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "merge@example.com")
	tee := createProduct(t, db, "Tee", "10.00", 50, "S", "M")

	cart, err := repo.GetOrCreateActive(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, repo.AddItem(ctx, cart.ID, tee.ID, "M", 1))
	require.NoError(t, repo.AddItem(ctx, cart.ID, tee.ID, "M", 2))
	require.NoError(t, repo.AddItem(ctx, cart.ID, tee.ID, "S", 1))

	lines, err := repo.ListLines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "M", lines[0].Size)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "Tee", lines[0].Name)
	assert.Equal(t, "10.00", lines[0].Price.StringFixed(2))
	assert.Equal(t, "S", lines[1].Size)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestCartRepository_ListLinesUsesLivePrice(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "live@example.com")
	hat := createProduct(t, db, "Cap", "15.50", 10)

	cart, err := repo.GetOrCreateActive(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddItem(ctx, cart.ID, hat.ID, "", 1))

	require.NoError(t, db.Table("products").Where("id = ?", hat.ID).Update("price", "17.25").Error)

	lines, err := repo.ListLines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "17.25", lines[0].Price.StringFixed(2))
}

func TestCartRepository_SetItemQuantityOverwrites(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "set@example.com")
	tee := createProduct(t, db, "Tee", "10.00", 50)

	cart, err := repo.GetOrCreateActive(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddItem(ctx, cart.ID, tee.ID, "", 4))

	require.NoError(t, repo.SetItemQuantity(ctx, cart.ID, tee.ID, "", 2))
	require.NoError(t, repo.SetItemQuantity(ctx, cart.ID, tee.ID, "", 2))

	lines, err := repo.ListLines(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	err = repo.SetItemQuantity(ctx, cart.ID, tee.ID, "XL", 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCartRepository_RemoveItem(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMCartRepository(db)
	ctx := context.Background()
	user := createUser(t, db, "remove@example.com")
	tee := createProduct(t, db, "Tee", "10.00", 50)

	cart, err := repo.GetOrCreateActive(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddItem(ctx, cart.ID, tee.ID, "", 1))

	require.NoError(t, repo.RemoveItem(ctx, cart.ID, tee.ID, ""))
	// Removing again is a no-op.
	require.NoError(t, repo.RemoveItem(ctx, cart.ID, tee.ID, ""))

	lines, err := repo.ListLines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
