package stats

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResult(t *testing.T) {
	m := NewMemory()
	err := m.RecordResult(context.Background(), GameResult{
		GameID: "g1", WinnerID: "ana", LoserID: "ben", Points: 2,
	})
	require.NoError(t, err)

	ana := m.Get("ana")
	assert.Equal(t, 1, ana.Wins)
	assert.Equal(t, 2, ana.Points)
	assert.Equal(t, startingRating+2*ratingStep, ana.Rating)

	ben := m.Get("ben")
	assert.Equal(t, 1, ben.Losses)
	assert.Equal(t, startingRating-2*ratingStep, ben.Rating)
}

func TestConcurrentCompletionsLoseNothing(t *testing.T) {
	m := NewMemory()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.RecordResult(context.Background(), GameResult{
				WinnerID: "ana", LoserID: "ben", Points: 1,
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, n, m.Get("ana").Wins)
	assert.Equal(t, n, m.Get("ben").Losses)
}
