package prolog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryLimit(t *testing.T) {
	kb := familyKB(t)
	sols, err := kb.QueryString("parent(?x, ?y)", QueryOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, sols.All(), 3)
}

// The engine must work for streams that would be infinite without a limit:
// pulling a few answers from an enormous enumeration returns immediately.
func TestQueryLaziness(t *testing.T) {
	kb := emptyKB(t)

	start := time.Now()
	sols, err := kb.QueryString("between(1, 1000000000, ?x)", QueryOptions{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		row, ok := sols.Next()
		require.True(t, ok)
		require.Equal(t, NewInt(int64(i+1)).String(), row["x"].String())
	}
	sols.Close()
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestQueryMalformedGoal(t *testing.T) {
	kb := emptyKB(t)
	_, err := kb.Query([]Term{NewInt(42)}, QueryOptions{})
	require.True(t, ErrMalformedTerm.Is(err))
}

func TestQuerySharedVariablesAcrossGoals(t *testing.T) {
	kb := familyKB(t)
	// The same ?y in both goals is one variable.
	sols, err := kb.QueryString("parent(tom, ?y), parent(?y, ann)", QueryOptions{})
	require.NoError(t, err)
	rows := sols.All()
	require.Len(t, rows, 1)
	require.Equal(t, "mary", rows[0]["y"].String())
}

func TestQueryCacheHitAndInvalidation(t *testing.T) {
	kb := familyKB(t)

	first, err := kb.QueryString("parent(tom, ?c)", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, first.All(), 2)

	hitsBefore := kb.cache.hitCount()
	second, err := kb.QueryString("parent(tom, ?c)", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, second.All(), 2)
	require.Greater(t, kb.cache.hitCount(), hitsBefore)

	// A mutation invalidates; the next query recomputes and sees the new
	// fact.
	require.NoError(t, kb.Assert("parent", NewAtom("tom"), NewAtom("zoe")))
	third, err := kb.QueryString("parent(tom, ?c)", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, third.All(), 3)
}

func TestQueryCacheSkipsAbandonedRuns(t *testing.T) {
	kb := familyKB(t)

	sols, err := kb.QueryString("parent(?x, ?y)", QueryOptions{})
	require.NoError(t, err)
	_, ok := sols.Next()
	require.True(t, ok)
	sols.Close()

	// The abandoned run must not have cached a partial result.
	again, err := kb.QueryString("parent(?x, ?y)", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, again.All(), 6)
}

func TestQueryAnonymousVariablesOmitted(t *testing.T) {
	kb := familyKB(t)
	sols, err := kb.QueryString("parent(tom, _)", QueryOptions{})
	require.NoError(t, err)
	rows := sols.All()
	require.Len(t, rows, 2)
	require.Empty(t, rows[0])
}

func TestQueryAfterCloseReturnsNothing(t *testing.T) {
	kb := familyKB(t)
	sols, err := kb.QueryString("parent(?x, ?y)", QueryOptions{})
	require.NoError(t, err)
	sols.Close()
	_, ok := sols.Next()
	require.False(t, ok)
}

func TestConcurrentQueries(t *testing.T) {
	kb := familyKB(t)

	done := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func() {
			sols, err := kb.QueryString("ancestor(tom, ?d)", QueryOptions{Trace: true})
			if err != nil {
				done <- -1
				return
			}
			done <- len(sols.All())
		}()
	}
	for i := 0; i < 4; i++ {
		select {
		case n := <-done:
			require.Equal(t, 6, n)
		case <-time.After(10 * time.Second):
			t.Fatal("concurrent query did not finish")
		}
	}
}
