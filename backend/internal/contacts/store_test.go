package contacts

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinship/backend/internal/constants"
	"kinship/backend/internal/database"
	apperrors "kinship/backend/pkg/errors"
)

// forEachStore runs fn against every backend with a fresh store
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		db, err := database.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "contacts.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		fn(t, NewSQLStore(db))
	})
}

func strPtr(s string) *string { return &s }

func TestAddOrGet_CreatesThenReturnsExisting(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first, created, err := s.AddOrGet(ctx, "Ellen Smith", nil)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Ellen Smith", first.Name)
		assert.Equal(t, 0, first.Facts.Count())

		second, created, err := s.AddOrGet(ctx, "  ellen   SMITH ", nil)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Ellen Smith", second.Name, "display name is kept from creation")

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestAddOrGet_SummaryReplacedOnlyWhenSupplied(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		c, _, err := s.AddOrGet(ctx, "Ellen", strPtr("Climbing partner"))
		require.NoError(t, err)
		assert.Equal(t, "Climbing partner", c.Summary)

		c, _, err = s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)
		assert.Equal(t, "Climbing partner", c.Summary)

		c, _, err = s.AddOrGet(ctx, "Ellen", strPtr("Old friend"))
		require.NoError(t, err)
		assert.Equal(t, "Old friend", c.Summary)
	})
}

func TestAddOrGet_RejectsBlankName(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, _, err := s.AddOrGet(context.Background(), "   ", nil)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	})
}

func TestAddOrGet_ConcurrentSameNameCreatesOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const workers = 16

		ids := make([]int64, workers)
		var createdCount int
		var mu sync.Mutex
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c, created, err := s.AddOrGet(ctx, "Tomorrah", nil)
				if !assert.NoError(t, err) {
					return
				}
				ids[i] = c.ID
				if created {
					mu.Lock()
					createdCount++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, createdCount)
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestDelete_IDsAreNotReused(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a, _, err := s.AddOrGet(ctx, "Deja", nil)
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, a.ID))

		_, err = s.Get(ctx, a.ID)
		assert.True(t, apperrors.IsNotFound(err))
		assert.True(t, apperrors.IsNotFound(s.Delete(ctx, a.ID)))

		b, created, err := s.AddOrGet(ctx, "Deja", nil)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Greater(t, b.ID, a.ID)
	})
}

func TestAddFact_FillsLowestEmptySlot(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)

		for i := 1; i <= 3; i++ {
			slot, err := s.AddFact(ctx, c.ID, fmt.Sprintf("fact %d", i), "")
			require.NoError(t, err)
			assert.Equal(t, i, slot)
		}

		require.NoError(t, s.DeleteFact(ctx, c.ID, 2))

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "fact 1", got.Facts.Get(1).Text)
		assert.True(t, got.Facts.Get(2).Empty(), "deleted slot stays empty")
		assert.Equal(t, "fact 3", got.Facts.Get(3).Text, "later slots do not shift")

		slot, err := s.AddFact(ctx, c.ID, "refill", "hobby")
		require.NoError(t, err)
		assert.Equal(t, 2, slot)

		got, err = s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, Fact{Slot: 2, Text: "refill", Type: "hobby"}, got.Facts.Get(2))
		assert.Equal(t, constants.DefaultFactType, got.Facts.Get(1).Type)
	})
}

func TestAddFact_EleventhFactIsRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)

		for i := 1; i <= constants.FactSlotCount; i++ {
			_, err := s.AddFact(ctx, c.ID, fmt.Sprintf("fact %d", i), "")
			require.NoError(t, err)
		}
		before, err := s.Get(ctx, c.ID)
		require.NoError(t, err)

		_, err = s.AddFact(ctx, c.ID, "one too many", "")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeCapacityExceeded))

		after, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Facts, after.Facts, "nothing is evicted")
	})
}

func TestAddFact_ConcurrentWritersGetDistinctSlots(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)

		slots := make(chan int, constants.FactSlotCount)
		var wg sync.WaitGroup
		for i := 0; i < constants.FactSlotCount; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				slot, err := s.AddFact(ctx, c.ID, fmt.Sprintf("fact %d", i), "")
				if assert.NoError(t, err) {
					slots <- slot
				}
			}(i)
		}
		wg.Wait()
		close(slots)

		seen := map[int]bool{}
		for slot := range slots {
			assert.False(t, seen[slot], "slot %d handed out twice", slot)
			seen[slot] = true
		}
		assert.Len(t, seen, constants.FactSlotCount)
	})
}

func TestAddFact_RejectsBlankText(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)

		_, err = s.AddFact(ctx, c.ID, "  ", "")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	})
}

func TestUpdateFact(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)
		_, err = s.AddFact(ctx, c.ID, "Works at the bakery", "Work")
		require.NoError(t, err)

		require.NoError(t, s.UpdateFact(ctx, c.ID, 1, "Works at the library", ""))
		require.NoError(t, s.UpdateFact(ctx, c.ID, 5, "Likes jazz", ""))

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, Fact{Slot: 1, Text: "Works at the library", Type: "work"}, got.Facts.Get(1))
		assert.Equal(t, Fact{Slot: 5, Text: "Likes jazz", Type: constants.DefaultFactType}, got.Facts.Get(5))
		assert.Equal(t, 2, got.Facts.Count())

		err = s.UpdateFact(ctx, 9999, 1, "x", "")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestSlotBounds(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)

		for _, slot := range []int{0, -1, constants.FactSlotCount + 1} {
			assert.True(t, apperrors.IsErrorType(s.UpdateFact(ctx, c.ID, slot, "x", ""), apperrors.ErrorTypeInvalidSlot))
			assert.True(t, apperrors.IsErrorType(s.DeleteFact(ctx, c.ID, slot), apperrors.ErrorTypeInvalidSlot))
			assert.True(t, apperrors.IsErrorType(s.UpdateFactType(ctx, c.ID, slot, "work"), apperrors.ErrorTypeInvalidSlot))
		}
	})
}

func TestDeleteFact(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)
		_, err = s.AddFact(ctx, c.ID, "Has a dog", "")
		require.NoError(t, err)

		require.NoError(t, s.DeleteFact(ctx, c.ID, 1))
		require.NoError(t, s.DeleteFact(ctx, c.ID, 1), "clearing an empty slot is fine")

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Facts.Count())

		assert.True(t, apperrors.IsNotFound(s.DeleteFact(ctx, 9999, 1)))
	})
}

func TestDeleteAllFactsAndUpdateFactType(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", strPtr("keeps summary"))
		require.NoError(t, err)
		_, err = s.AddFact(ctx, c.ID, "Born in Ohio", "")
		require.NoError(t, err)
		_, err = s.AddFact(ctx, c.ID, "Plays cello", "")
		require.NoError(t, err)

		require.NoError(t, s.UpdateFactType(ctx, c.ID, 2, " Hobby "))
		err = s.UpdateFactType(ctx, c.ID, 3, "hobby")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation), "empty slot has no type to change")

		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "hobby", got.Facts.Get(2).Type)

		require.NoError(t, s.DeleteAllFacts(ctx, c.ID))
		got, err = s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Facts.Count())
		assert.Equal(t, "keeps summary", got.Summary)
	})
}

func TestUpdateSummary(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		c, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)

		require.NoError(t, s.UpdateSummary(ctx, c.ID, "Neighbor"))
		got, err := s.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "Neighbor", got.Summary)

		assert.True(t, apperrors.IsNotFound(s.UpdateSummary(ctx, 9999, "x")))
	})
}

func TestQuery(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ellen, _, err := s.AddOrGet(ctx, "Ellen Smith", nil)
		require.NoError(t, err)
		_, _, err = s.AddOrGet(ctx, "Ellen Park", nil)
		require.NoError(t, err)
		_, _, err = s.AddOrGet(ctx, "Deja", nil)
		require.NoError(t, err)

		got, err := Query(ctx, s, &ellen.ID, "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ellen Smith", got[0].Name)

		got, err = Query(ctx, s, nil, "ELLEN")
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = Query(ctx, s, nil, "nobody")
		require.NoError(t, err)
		assert.Empty(t, got)

		missing := int64(9999)
		_, err = Query(ctx, s, &missing, "")
		assert.True(t, apperrors.IsNotFound(err))

		_, err = Query(ctx, s, &ellen.ID, "Ellen")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
		_, err = Query(ctx, s, nil, " ")
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	})
}

func TestResolve(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		smith, _, err := s.AddOrGet(ctx, "Ellen Smith", nil)
		require.NoError(t, err)
		_, _, err = s.AddOrGet(ctx, "Ellen Park", nil)
		require.NoError(t, err)

		_, err = Resolve(ctx, s, "ellen")
		var ambiguous *apperrors.ErrAmbiguousMatch
		require.ErrorAs(t, err, &ambiguous)
		assert.Len(t, ambiguous.Candidates, 2)

		got, err := Resolve(ctx, s, "smith")
		require.NoError(t, err)
		assert.Equal(t, smith.ID, got.ID)

		_, err = Resolve(ctx, s, "Tomorrah")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestFactsByTypeAndSearch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ellen, _, err := s.AddOrGet(ctx, "Ellen", nil)
		require.NoError(t, err)
		deja, _, err := s.AddOrGet(ctx, "Deja", strPtr("Loves hiking"))
		require.NoError(t, err)

		_, err = s.AddFact(ctx, ellen.ID, "Plays cello", "hobby")
		require.NoError(t, err)
		_, err = s.AddFact(ctx, ellen.ID, "Nurse at St. Mary's", "work")
		require.NoError(t, err)
		_, err = s.AddFact(ctx, deja.ID, "Collects vinyl", "hobby")
		require.NoError(t, err)

		hobbies, err := FactsByType(ctx, s, nil, "HOBBY")
		require.NoError(t, err)
		require.Len(t, hobbies, 2)
		assert.Equal(t, ellen.ID, hobbies[0].ContactID)
		assert.Equal(t, "Collects vinyl", hobbies[1].Text)

		ellenFacts, err := FactsByType(ctx, s, &ellen.ID, "")
		require.NoError(t, err)
		assert.Len(t, ellenFacts, 2)

		found, err := SearchFacts(ctx, s, "cello")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, ellen.ID, found[0].ID)

		found, err = SearchFacts(ctx, s, "hiking")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, deja.ID, found[0].ID)
	})
}

func TestFindByName_EscapesWildcards(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _, err := s.AddOrGet(ctx, "Ann", nil)
		require.NoError(t, err)

		got, err := s.FindByName(ctx, "%")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCancelledContext(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := s.AddOrGet(ctx, "Ellen", nil)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
	})
}
