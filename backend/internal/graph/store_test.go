package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinship/backend/internal/database"
	apperrors "kinship/backend/pkg/errors"
)

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		db, err := database.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "graph.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		fn(t, NewSQLStore(db))
	})
}

func TestUpsertNode_MergesProperties(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.UpsertNode(ctx, NodeInput{ID: "Ellen", Label: "Person", Properties: map[string]interface{}{
			"city": "Denver",
			"age":  34,
		}})
		require.NoError(t, err)

		n, err := s.UpsertNode(ctx, NodeInput{ID: "Ellen", Properties: map[string]interface{}{
			"city":       "Boulder",
			"occupation": "nurse",
		}})
		require.NoError(t, err)

		assert.Equal(t, "Person", n.Label, "empty label keeps the stored one")
		assert.Equal(t, map[string]interface{}{
			"city":       "Boulder",
			"age":        int64(34),
			"occupation": "nurse",
		}, n.Properties)

		all, err := s.ListNodes(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestUpsertNode_ReplacesLabelWhenSupplied(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.UpsertNode(ctx, NodeInput{ID: "Denver", Label: "Person"})
		require.NoError(t, err)

		n, err := s.UpsertNode(ctx, NodeInput{ID: "Denver", Label: "Place"})
		require.NoError(t, err)
		assert.Equal(t, "Place", n.Label)
	})
}

func TestUpsertNode_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.UpsertNode(ctx, NodeInput{ID: "  "})
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

		_, err = s.UpsertNode(ctx, NodeInput{ID: "Ellen", Properties: map[string]interface{}{"label": "x"}})
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

		_, err = s.GetNode(ctx, "Ellen")
		assert.True(t, apperrors.IsNotFound(err), "rejected upsert writes nothing")
	})
}

func TestUpsertEdge_CreatesPlaceholdersThenFillsThem(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		edge, err := s.UpsertEdge(ctx, EdgeInput{From: "Tomorrah", To: "Deja", Type: "friends_with"})
		require.NoError(t, err)
		assert.NotEmpty(t, edge.ID)

		for _, id := range []string{"Tomorrah", "Deja"} {
			n, err := s.GetNode(ctx, id)
			require.NoError(t, err)
			assert.True(t, n.IsPlaceholder())
		}

		n, err := s.UpsertNode(ctx, NodeInput{ID: "Tomorrah", Label: "Person", Properties: map[string]interface{}{
			"relationship_to_user": "wife",
		}})
		require.NoError(t, err)
		assert.Equal(t, "Person", n.Label)
		assert.Equal(t, "wife", n.Properties["relationship_to_user"])

		all, err := s.ListNodes(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2, "no duplicate node for the filled placeholder")

		neighbors, err := CollectNeighbors(s.Neighbors(ctx, "Tomorrah", ""))
		require.NoError(t, err)
		require.Len(t, neighbors, 1)
		assert.Equal(t, edge.ID, neighbors[0].Edge.ID, "edge unchanged")
		assert.Equal(t, "Deja", neighbors[0].Node.ID)
	})
}

func TestUpsertEdge_SameTripleMerges(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		first, err := s.UpsertEdge(ctx, EdgeInput{From: "Ellen", To: "Deja", Type: "knows",
			Properties: map[string]interface{}{"since": 2015}})
		require.NoError(t, err)
		second, err := s.UpsertEdge(ctx, EdgeInput{From: "Ellen", To: "Deja", Type: "knows",
			Properties: map[string]interface{}{"context": "work"}})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, map[string]interface{}{"since": int64(2015), "context": "work"}, second.Properties)

		_, err = s.UpsertEdge(ctx, EdgeInput{From: "Ellen", To: "Deja", Type: "works_with"})
		require.NoError(t, err)
		_, err = s.UpsertEdge(ctx, EdgeInput{From: "Deja", To: "Ellen", Type: "knows"})
		require.NoError(t, err)

		edges, err := s.IncidentEdges(ctx, "Ellen")
		require.NoError(t, err)
		assert.Len(t, edges, 3)
	})
}

func TestUpsertEdge_Validation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.UpsertEdge(context.Background(), EdgeInput{From: "Ellen", To: "Deja"})
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	})
}

func TestNeighbors(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, e := range []EdgeInput{
			{From: "Ellen", To: "Denver", Type: "lives_in"},
			{From: "Ellen", To: "Deja", Type: "friends_with"},
			{From: "Ellen", To: "Alex", Type: "friends_with"},
			{From: "Deja", To: "Ellen", Type: "friends_with"},
		} {
			_, err := s.UpsertEdge(ctx, e)
			require.NoError(t, err)
		}

		all, err := CollectNeighbors(s.Neighbors(ctx, "Ellen", ""))
		require.NoError(t, err)
		require.Len(t, all, 3, "outgoing edges only")
		assert.Equal(t, "Alex", all[0].Node.ID)
		assert.Equal(t, "Deja", all[1].Node.ID)
		assert.Equal(t, "Denver", all[2].Node.ID)

		friends, err := CollectNeighbors(s.Neighbors(ctx, "Ellen", "friends_with"))
		require.NoError(t, err)
		assert.Len(t, friends, 2)

		none, err := CollectNeighbors(s.Neighbors(ctx, "Nobody", ""))
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestNeighbors_StopsEarly(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			_, err := s.UpsertEdge(ctx, EdgeInput{From: "hub", To: fmt.Sprintf("spoke-%d", i), Type: "links"})
			require.NoError(t, err)
		}

		seen := 0
		for n, err := range s.Neighbors(ctx, "hub", "") {
			require.NoError(t, err)
			assert.Equal(t, "spoke-0", n.Node.ID)
			seen++
			break
		}
		assert.Equal(t, 1, seen)

		// the store is still usable after abandoning the iteration
		_, err := s.UpsertNode(ctx, NodeInput{ID: "hub", Label: "Place"})
		assert.NoError(t, err)
	})
}

func TestListNodes_ByLabel(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.UpsertNode(ctx, NodeInput{ID: "Ellen", Label: "Person"})
		require.NoError(t, err)
		_, err = s.UpsertNode(ctx, NodeInput{ID: "Denver", Label: "Place"})
		require.NoError(t, err)
		_, err = s.UpsertNode(ctx, NodeInput{ID: "Deja", Label: "Person"})
		require.NoError(t, err)

		people, err := s.ListNodes(ctx, "person")
		require.NoError(t, err)
		require.Len(t, people, 2)
		assert.Equal(t, "Deja", people[0].ID)
		assert.Equal(t, "Ellen", people[1].ID)
	})
}

func TestResolveNode(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.UpsertNode(ctx, NodeInput{ID: "tomorrah", Label: "Person"})
		require.NoError(t, err)
		_, err = s.UpsertNode(ctx, NodeInput{ID: "person-42", Label: "Person",
			Properties: map[string]interface{}{"name": "Deja Jones"}})
		require.NoError(t, err)
		_, err = s.UpsertNode(ctx, NodeInput{ID: "alex-1", Properties: map[string]interface{}{"name": "Alex"}})
		require.NoError(t, err)
		_, err = s.UpsertNode(ctx, NodeInput{ID: "alex-2", Properties: map[string]interface{}{"name": "alex"}})
		require.NoError(t, err)

		n, err := s.ResolveNode(ctx, "  Tomorrah ")
		require.NoError(t, err)
		assert.Equal(t, "tomorrah", n.ID)

		n, err = s.ResolveNode(ctx, "deja   jones")
		require.NoError(t, err)
		assert.Equal(t, "person-42", n.ID)

		_, err = s.ResolveNode(ctx, "Alex")
		var ambiguous *apperrors.ErrAmbiguousMatch
		require.ErrorAs(t, err, &ambiguous)
		assert.Equal(t, []string{"alex-1", "alex-2"}, ambiguous.Candidates)

		_, err = s.ResolveNode(ctx, "Nobody")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestUpsertNode_ConcurrentMergesKeepEveryKey(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		const writers = 8

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.UpsertNode(ctx, NodeInput{ID: "Ellen", Properties: map[string]interface{}{
					fmt.Sprintf("k%d", i): i,
				}})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		n, err := s.GetNode(ctx, "Ellen")
		require.NoError(t, err)
		assert.Len(t, n.Properties, writers)
	})
}

func TestDeleteNode_RemovesIncidentEdges(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, e := range []EdgeInput{
			{From: "Tomorrah", To: "Deja", Type: "friends_with"},
			{From: "Deja", To: "Tomorrah", Type: "friends_with"},
			{From: "Tomorrah", To: "Miami", Type: "traveled_to"},
			{From: "Deja", To: "Miami", Type: "lives_in"},
		} {
			_, err := s.UpsertEdge(ctx, e)
			require.NoError(t, err)
		}

		removed, err := s.DeleteNode(ctx, "Tomorrah")
		require.NoError(t, err)
		assert.Equal(t, 3, removed)

		_, err = s.GetNode(ctx, "Tomorrah")
		assert.True(t, apperrors.IsNotFound(err))

		edges, err := s.IncidentEdges(ctx, "Deja")
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "lives_in", edges[0].Type)

		neighbors, err := CollectNeighbors(s.Neighbors(ctx, "Tomorrah", ""))
		require.NoError(t, err)
		assert.Empty(t, neighbors)

		_, err = s.DeleteNode(ctx, "Tomorrah")
		assert.True(t, apperrors.IsNotFound(err))

		// the id can be reused afterwards
		n, err := s.UpsertNode(ctx, NodeInput{ID: "Tomorrah", Label: "Person"})
		require.NoError(t, err)
		assert.Empty(t, n.Properties)
	})
}

func TestStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		empty, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, empty.Nodes)
		assert.Empty(t, empty.Labels)

		_, err = s.UpsertNode(ctx, NodeInput{ID: "Tomorrah", Label: "Person"})
		require.NoError(t, err)
		_, err = s.UpsertNode(ctx, NodeInput{ID: "Miami", Label: "Place"})
		require.NoError(t, err)
		_, err = s.UpsertEdge(ctx, EdgeInput{From: "Tomorrah", To: "Deja", Type: "friends_with"})
		require.NoError(t, err)
		_, err = s.UpsertEdge(ctx, EdgeInput{From: "Tomorrah", To: "Miami", Type: "traveled_to"})
		require.NoError(t, err)
		_, err = s.UpsertEdge(ctx, EdgeInput{From: "Deja", To: "Miami", Type: "traveled_to"})
		require.NoError(t, err)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Nodes)
		assert.Equal(t, 1, stats.Placeholders, "Deja was only ever an endpoint")
		assert.Equal(t, map[string]int{"Person": 1, "Place": 1}, stats.Labels)
		assert.Equal(t, 3, stats.Edges)
		assert.Equal(t, map[string]int{"friends_with": 1, "traveled_to": 2}, stats.RelationshipTypes)
	})
}

func TestResolveNode_CollapsesInnerWhitespace(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.UpsertNode(ctx, NodeInput{ID: "Mary  Jane", Label: "Person"})
		require.NoError(t, err)

		n, err := s.ResolveNode(ctx, "mary jane")
		require.NoError(t, err)
		assert.Equal(t, "Mary  Jane", n.ID)
	})
}
