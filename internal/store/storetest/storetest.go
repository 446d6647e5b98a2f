// Package storetest holds the behaviour every store.RecordStore must share.
// Backends call Run from their own tests with a constructor for a fresh,
// empty store.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagebook/internal/core"
	"wagebook/internal/store"
)

// Factory returns an empty store. Cleanup is the caller's job (t.Cleanup).
type Factory func(t *testing.T) store.RecordStore

func record(worker, date, amount string) core.WageRecord {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.WageRecord{
		WorkerName: worker,
		WorkDate:   d,
		Amount:     decimal.RequireFromString(amount),
	}
}

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert then list round trips every field", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := record("Ram", "2024-01-05", "612.5")
		in.Category = "mason"
		in.Note = "half day, paid cash"

		id, err := s.InsertRecord(ctx, in)
		require.NoError(t, err)
		assert.NotZero(t, id)

		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id, got[0].ID)
		assert.Equal(t, in.WorkerName, got[0].WorkerName)
		assert.Equal(t, in.Category, got[0].Category)
		assert.Equal(t, in.Note, got[0].Note)
		assert.Equal(t, "2024-01-05", got[0].WorkDate.String())
		assert.True(t, in.Amount.Equal(got[0].Amount), "amount %s != %s", in.Amount, got[0].Amount)
	})

	t.Run("ids are unique", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seen := map[int64]bool{}
		for i := 0; i < 5; i++ {
			id, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", "1"))
			require.NoError(t, err)
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
	})

	t.Run("list order is date desc then id asc and stable", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		idA, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", "500"))
		require.NoError(t, err)
		idB, err := s.InsertRecord(ctx, record("Shyam", "2024-01-05", "700"))
		require.NoError(t, err)
		idC, err := s.InsertRecord(ctx, record("Ram", "2024-01-06", "600"))
		require.NoError(t, err)

		first, err := s.ListRecords(ctx)
		require.NoError(t, err)
		ids := make([]int64, 0, len(first))
		for _, r := range first {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []int64{idC, idA, idB}, ids)

		second, err := s.ListRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("update replaces all fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := record("Ram", "2024-01-05", "500")
		in.Note = "old"
		in.Category = "helper"
		id, err := s.InsertRecord(ctx, in)
		require.NoError(t, err)

		upd := record("Shyam", "2024-02-01", "800")
		upd.ID = id
		require.NoError(t, s.UpdateRecord(ctx, upd))

		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id, got[0].ID)
		assert.Equal(t, "Shyam", got[0].WorkerName)
		assert.Equal(t, "", got[0].Note)
		assert.Equal(t, "", got[0].Category)
		assert.Equal(t, "2024-02-01", got[0].WorkDate.String())
		assert.Equal(t, "800", got[0].Amount.String())
	})

	t.Run("update unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		upd := record("Ram", "2024-01-05", "1")
		upd.ID = 4242
		assert.ErrorIs(t, s.UpdateRecord(context.Background(), upd), core.ErrNotFound)
	})

	t.Run("delete is permanent and not idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", "1"))
		require.NoError(t, err)
		keep, err := s.InsertRecord(ctx, record("Ram", "2024-01-06", "2"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteRecord(ctx, id))
		assert.ErrorIs(t, s.DeleteRecord(ctx, id), core.ErrNotFound)

		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, keep, got[0].ID)
	})

	t.Run("a deleted id is never reassigned", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ram, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", "500"))
		require.NoError(t, err)
		shyam, err := s.InsertRecord(ctx, record("Shyam", "2024-01-05", "700"))
		require.NoError(t, err)
		require.NoError(t, s.DeleteRecord(ctx, shyam))

		gita, err := s.InsertRecord(ctx, record("Gita", "2024-01-06", "300"))
		require.NoError(t, err)
		assert.NotEqual(t, shyam, gita)
		assert.ErrorIs(t, s.DeleteRecord(ctx, shyam), core.ErrNotFound)

		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, gita, got[0].ID)
		assert.Equal(t, ram, got[1].ID)

		first, err := s.InsertWorker(ctx, core.Worker{Name: "Ram"})
		require.NoError(t, err)
		gone, err := s.InsertWorker(ctx, core.Worker{Name: "Shyam"})
		require.NoError(t, err)
		require.NoError(t, s.DeleteWorker(ctx, gone))
		again, err := s.InsertWorker(ctx, core.Worker{Name: "Gita"})
		require.NoError(t, err)
		assert.NotEqual(t, gone, again)
		assert.NotEqual(t, first, again)
		assert.ErrorIs(t, s.DeleteWorker(ctx, gone), core.ErrNotFound)
	})

	t.Run("amounts at the storable limits round trip exactly", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, amount := range []string{"999999999999.99", "0.01", "0"} {
			_, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", amount))
			require.NoError(t, err, amount)
		}
		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "999999999999.99", got[0].Amount.String())
		assert.Equal(t, "0.01", got[1].Amount.String())
		assert.True(t, got[2].Amount.IsZero())
	})

	t.Run("amounts no backend can store are rejected before writing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", "500"))
		require.NoError(t, err)

		for _, amount := range []string{"612.555", "1000000000000"} {
			_, err := s.InsertRecord(ctx, record("Ram", "2024-01-05", amount))
			assert.ErrorIs(t, err, core.ErrValidation, amount)

			upd := record("Ram", "2024-01-05", amount)
			upd.ID = id
			assert.ErrorIs(t, s.UpdateRecord(ctx, upd), core.ErrValidation, amount)
		}

		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "500", got[0].Amount.String())
	})

	t.Run("duplicate worker is rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.InsertWorker(ctx, core.Worker{Name: "Ram", Category: "mason"})
		require.NoError(t, err)
		_, err = s.InsertWorker(ctx, core.Worker{Name: "Ram"})
		assert.ErrorIs(t, err, core.ErrDuplicate)

		workers, err := s.ListWorkers(ctx)
		require.NoError(t, err)
		count := 0
		for _, w := range workers {
			if w.Name == "Ram" {
				count++
				assert.Equal(t, "mason", w.Category)
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("workers are listed by name", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, n := range []string{"Shyam", "Gita", "Ram"} {
			_, err := s.InsertWorker(ctx, core.Worker{Name: n, Contact: n + "@site"})
			require.NoError(t, err)
		}
		workers, err := s.ListWorkers(ctx)
		require.NoError(t, err)
		names := []string{}
		for _, w := range workers {
			names = append(names, w.Name)
		}
		assert.Equal(t, []string{"Gita", "Ram", "Shyam"}, names)
	})

	t.Run("deleting a worker keeps their records", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		wid, err := s.InsertWorker(ctx, core.Worker{Name: "Ram"})
		require.NoError(t, err)
		_, err = s.InsertRecord(ctx, record("Ram", "2024-01-05", "500"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteWorker(ctx, wid))
		assert.ErrorIs(t, s.DeleteWorker(ctx, wid), core.ErrNotFound)

		got, err := s.ListRecords(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ram", got[0].WorkerName)
	})
}
