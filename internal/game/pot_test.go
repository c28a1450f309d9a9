package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contributor(seat, totalBet int, folded bool) *Player {
	return &Player{ID: string(rune('a' + seat)), Seat: seat, TotalBet: totalBet, Folded: folded}
}

func TestBuildPots(t *testing.T) {
	t.Parallel()

	t.Run("single level single pot", func(t *testing.T) {
		pots := BuildPots([]*Player{
			contributor(0, 100, false),
			contributor(1, 100, false),
			contributor(2, 100, false),
		})
		require.Len(t, pots, 1)
		assert.Equal(t, 300, pots[0].Amount)
		assert.Equal(t, []int{0, 1, 2}, pots[0].Eligible)
	})

	t.Run("all-in layering", func(t *testing.T) {
		pots := BuildPots([]*Player{
			contributor(0, 100, false),
			contributor(1, 50, false),
			contributor(2, 100, false),
		})
		require.Len(t, pots, 2)
		assert.Equal(t, 150, pots[0].Amount)
		assert.Equal(t, []int{0, 1, 2}, pots[0].Eligible)
		assert.Equal(t, 100, pots[1].Amount)
		assert.Equal(t, []int{0, 2}, pots[1].Eligible)
	})

	t.Run("folded chips stay in but are never eligible", func(t *testing.T) {
		pots := BuildPots([]*Player{
			contributor(0, 100, false),
			contributor(1, 60, true),
			contributor(2, 100, false),
		})
		assert.Equal(t, 260, PotTotal(pots))
		for _, pot := range pots {
			assert.NotContains(t, pot.Eligible, 1)
		}
	})

	t.Run("identical eligibility coalesces", func(t *testing.T) {
		// The folded player's level creates a layer boundary but both
		// layers have the same eligible set
		pots := BuildPots([]*Player{
			contributor(0, 100, false),
			contributor(1, 40, true),
			contributor(2, 100, false),
		})
		require.Len(t, pots, 1)
		assert.Equal(t, 240, pots[0].Amount)
		assert.Equal(t, []int{0, 2}, pots[0].Eligible)
	})

	t.Run("three stacked all-ins", func(t *testing.T) {
		pots := BuildPots([]*Player{
			contributor(0, 25, false),
			contributor(1, 75, false),
			contributor(2, 200, false),
			contributor(3, 200, false),
		})
		require.Len(t, pots, 3)
		assert.Equal(t, 100, pots[0].Amount)  // 25 x 4
		assert.Equal(t, 150, pots[1].Amount)  // 50 x 3
		assert.Equal(t, 250, pots[2].Amount)  // 125 x 2
		assert.Equal(t, []int{2, 3}, pots[2].Eligible)
		assert.Equal(t, 500, PotTotal(pots))
	})

	t.Run("no contributions no pots", func(t *testing.T) {
		assert.Empty(t, BuildPots([]*Player{contributor(0, 0, false)}))
	})
}
