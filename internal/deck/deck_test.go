package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedHas52UniqueCards(t *testing.T) {
	t.Parallel()

	cards := Ordered()
	require.Len(t, cards, 52)

	seen := make(map[Card]bool)
	for _, c := range cards {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
}

func TestNewRejectsBadDecks(t *testing.T) {
	t.Parallel()

	_, err := New("short", Ordered()[:51])
	assert.Error(t, err)

	cards := Ordered()
	cards[1] = cards[0]
	_, err = New("dup", cards)
	assert.Error(t, err)
}

func TestDealAndBurn(t *testing.T) {
	t.Parallel()

	d, err := New("d1", Ordered())
	require.NoError(t, err)

	first, err := d.Deal(2)
	require.NoError(t, err)
	assert.Equal(t, []Card{NewCard(Two, Clubs), NewCard(Three, Clubs)}, first)
	assert.Equal(t, 50, d.Remaining())

	require.NoError(t, d.Burn())
	assert.Equal(t, 49, d.Remaining())

	next, err := d.Deal(1)
	require.NoError(t, err)
	assert.Equal(t, NewCard(Five, Clubs), next[0])
}

func TestDealExhaustion(t *testing.T) {
	t.Parallel()

	d, err := New("d1", Ordered())
	require.NoError(t, err)

	_, err = d.Deal(52)
	require.NoError(t, err)

	_, err = d.Deal(1)
	assert.Error(t, err)
	assert.Error(t, d.Burn())
}

func TestCardParseRoundTrip(t *testing.T) {
	t.Parallel()

	for _, c := range Ordered() {
		parsed, err := Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	// ASCII suits are accepted too
	c, err := Parse("Td")
	require.NoError(t, err)
	assert.Equal(t, NewCard(Ten, Diamonds), c)

	_, err = Parse("Xd")
	assert.Error(t, err)
	_, err = Parse("T")
	assert.Error(t, err)
}
