package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/Inventory/internal/core"
)

func strPtr(s string) *string { return &s }

// runStoreSuite checks the core.Store contract against a fresh, empty store
// produced by newStore for each subtest.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) core.Store) {
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{
			Name: "Hammer", Unit: "pcs", Category: "tools", Brand: "Stanley",
			Stock: 4, Status: "active", Image: strPtr("/uploads/h.png"),
		})
		require.NoError(t, err)
		require.NotZero(t, id)

		got, err := s.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.Product{
			ID: id, Name: "Hammer", Unit: "pcs", Category: "tools", Brand: "Stanley",
			Stock: 4, Status: "active", Image: strPtr("/uploads/h.png"),
		}, *got)
	})

	t.Run("null image round trips", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Plain"})
		require.NoError(t, err)

		got, err := s.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.Image)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetProduct(ctx, 404)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("case-insensitive unique name", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InsertProduct(ctx, core.Product{Name: "Widget"})
		require.NoError(t, err)

		_, err = s.InsertProduct(ctx, core.Product{Name: "WIDGET"})
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("unique name ignores non-ASCII case", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Émile"})
		require.NoError(t, err)

		_, err = s.InsertProduct(ctx, core.Product{Name: "émile"})
		assert.ErrorIs(t, err, core.ErrConflict)

		got, err := s.FindProductByName(ctx, "ÉMILE", 0)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)

		list, err := s.ListProducts(ctx, core.ProductFilter{Search: "émi"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Émile", list[0].Name)
	})

	t.Run("find by name", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Drill"})
		require.NoError(t, err)

		got, err := s.FindProductByName(ctx, "dRiLL", 0)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)

		_, err = s.FindProductByName(ctx, "drill", id)
		assert.ErrorIs(t, err, core.ErrNotFound, "own id excluded")

		_, err = s.FindProductByName(ctx, "dril", 0)
		assert.ErrorIs(t, err, core.ErrNotFound, "no prefix match")
	})

	t.Run("list filters", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []core.Product{
			{Name: "Red Paint", Category: "paint"},
			{Name: "Blue Paint", Category: "paint"},
			{Name: "Paint Brush", Category: "tools"},
			{Name: "100% Cotton_Rag", Category: "tools"},
		} {
			_, err := s.InsertProduct(ctx, p)
			require.NoError(t, err)
		}

		names := func(filter core.ProductFilter) []string {
			list, err := s.ListProducts(ctx, filter)
			require.NoError(t, err)
			out := []string{}
			for _, p := range list {
				out = append(out, p.Name)
			}
			return out
		}

		assert.Equal(t, []string{"Red Paint", "Blue Paint", "Paint Brush", "100% Cotton_Rag"}, names(core.ProductFilter{}))
		assert.Equal(t, []string{"Paint Brush", "100% Cotton_Rag"}, names(core.ProductFilter{Category: "tools"}))
		assert.Equal(t, []string{"Red Paint", "Blue Paint", "Paint Brush"}, names(core.ProductFilter{Search: "PAINT"}))
		assert.Equal(t, []string{"Paint Brush"}, names(core.ProductFilter{Category: "tools", Search: "paint"}))
		assert.Equal(t, []string{"100% Cotton_Rag"}, names(core.ProductFilter{Search: "0%"}))
		assert.Equal(t, []string{"100% Cotton_Rag"}, names(core.ProductFilter{Search: "n_r"}))
		assert.Equal(t, []string{"100% Cotton_Rag"}, names(core.ProductFilter{Search: "%"}), "% matched literally")
		assert.Equal(t, []string{"100% Cotton_Rag"}, names(core.ProductFilter{Search: "_"}), "_ matched literally")
		assert.Equal(t, []string{}, names(core.ProductFilter{Search: "zz"}))
		assert.Equal(t, []string{}, names(core.ProductFilter{Category: "Tools"}), "category is exact")
	})

	t.Run("update", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Saw", Stock: 1, Image: strPtr("/x.png")})
		require.NoError(t, err)

		err = s.UpdateProduct(ctx, core.Product{ID: id, Name: "Hand Saw", Stock: 9, Status: "inactive"})
		require.NoError(t, err)

		got, err := s.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Hand Saw", got.Name)
		assert.Equal(t, int64(9), got.Stock)
		assert.Equal(t, "inactive", got.Status)
		assert.Nil(t, got.Image)

		err = s.UpdateProduct(ctx, core.Product{ID: id + 100, Name: "Ghost"})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("update conflict", func(t *testing.T) {
		s := newStore(t)
		_, err := s.InsertProduct(ctx, core.Product{Name: "Alpha"})
		require.NoError(t, err)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Beta"})
		require.NoError(t, err)

		err = s.UpdateProduct(ctx, core.Product{ID: id, Name: "alpha"})
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Temp"})
		require.NoError(t, err)

		require.NoError(t, s.DeleteProduct(ctx, id))
		assert.ErrorIs(t, s.DeleteProduct(ctx, id), core.ErrNotFound)

		list, err := s.ListProducts(ctx, core.ProductFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("stock history newest first and kept after delete", func(t *testing.T) {
		s := newStore(t)
		id, err := s.InsertProduct(ctx, core.Product{Name: "Rope"})
		require.NoError(t, err)

		base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		entries := []core.StockChange{
			{ProductID: id, OldStock: 0, NewStock: 5, ChangedBy: "alice", Timestamp: base},
			{ProductID: id, OldStock: 5, NewStock: 3, ChangedBy: "bob", Timestamp: base.Add(90 * time.Second)},
			{ProductID: id, OldStock: 3, NewStock: 7, ChangedBy: "system", Timestamp: base.Add(90 * time.Second)},
			{ProductID: id + 1, OldStock: 1, NewStock: 2, ChangedBy: "other", Timestamp: base},
		}
		for _, e := range entries {
			_, err := s.InsertStockChange(ctx, e)
			require.NoError(t, err)
		}
		require.NoError(t, s.DeleteProduct(ctx, id))

		history, err := s.ListStockChanges(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, int64(7), history[0].NewStock, "same timestamp breaks ties by id")
		assert.Equal(t, int64(3), history[1].NewStock)
		assert.Equal(t, int64(5), history[2].NewStock)
		assert.Equal(t, "alice", history[2].ChangedBy)
		assert.True(t, base.Equal(history[2].Timestamp), "timestamp %v", history[2].Timestamp)

		none, err := s.ListStockChanges(ctx, 9999)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
