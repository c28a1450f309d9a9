package evaluator

import (
	"fmt"
	"sort"

	"github.com/lox/holdem-core/internal/deck"
)

// Ranking represents a hand category. Higher is better.
type Ranking int

const (
	HighCard Ranking = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the string representation of a ranking
func (r Ranking) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Evaluation is the ranked result of evaluating a 5-7 card hand
type Evaluation struct {
	Ranking     Ranking
	Cards       []deck.Card // The best five cards
	HighCard    deck.Rank
	Kickers     []deck.Rank
	Description string
}

// ErrInvalidInput is returned when the card count is out of range
type ErrInvalidInput struct {
	Count int
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("evaluate requires 5 to 7 cards, got %d", e.Count)
}

// Evaluate returns the best five-card evaluation of 5 to 7 cards
func Evaluate(cards []deck.Card) (Evaluation, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Evaluation{}, ErrInvalidInput{Count: len(cards)}
	}

	bySuit := make(map[deck.Suit][]deck.Card)
	counts := make(map[deck.Rank]int)
	for _, c := range cards {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
		counts[c.Rank]++
	}
	for _, sc := range bySuit {
		sortDesc(sc)
	}

	// Straight flush and royal flush: a straight within a suit of 5+
	for _, sc := range bySuit {
		if len(sc) < 5 {
			continue
		}
		if high, ok := straightHigh(ranksOf(sc)); ok {
			run := straightCards(sc, high)
			if high == deck.Ace {
				return Evaluation{
					Ranking:     RoyalFlush,
					Cards:       run,
					HighCard:    high,
					Description: "Royal Flush",
				}, nil
			}
			return Evaluation{
				Ranking:     StraightFlush,
				Cards:       run,
				HighCard:    high,
				Description: fmt.Sprintf("Straight Flush, %s high", high),
			}, nil
		}
	}

	quads, trips, pairs := groupRanks(counts)

	if len(quads) > 0 {
		rank := quads[0]
		picked := pickByRank(cards, rank, 4)
		kicker := bestExcluding(cards, 1, rank)
		return Evaluation{
			Ranking:     FourOfAKind,
			Cards:       append(picked, kicker...),
			HighCard:    rank,
			Kickers:     ranksOf(kicker),
			Description: fmt.Sprintf("Four of a Kind, %ss", rank),
		}, nil
	}

	// Full house: best trips plus best remaining pair (a second trips counts)
	if len(trips) > 0 && (len(pairs) > 0 || len(trips) > 1) {
		tripRank := trips[0]
		var pairRank deck.Rank
		if len(trips) > 1 && (len(pairs) == 0 || trips[1] > pairs[0]) {
			pairRank = trips[1]
		} else {
			pairRank = pairs[0]
		}
		hand := append(pickByRank(cards, tripRank, 3), pickByRank(cards, pairRank, 2)...)
		return Evaluation{
			Ranking:     FullHouse,
			Cards:       hand,
			HighCard:    tripRank,
			Kickers:     []deck.Rank{pairRank},
			Description: fmt.Sprintf("Full House, %ss over %ss", tripRank, pairRank),
		}, nil
	}

	for _, sc := range bySuit {
		if len(sc) >= 5 {
			five := sc[:5]
			return Evaluation{
				Ranking:     Flush,
				Cards:       five,
				HighCard:    five[0].Rank,
				Kickers:     ranksOf(five[1:]),
				Description: fmt.Sprintf("Flush, %s high", five[0].Rank),
			}, nil
		}
	}

	if high, ok := straightHigh(distinctRanks(counts)); ok {
		sorted := make([]deck.Card, len(cards))
		copy(sorted, cards)
		sortDesc(sorted)
		return Evaluation{
			Ranking:     Straight,
			Cards:       straightCards(sorted, high),
			HighCard:    high,
			Description: fmt.Sprintf("Straight, %s high", high),
		}, nil
	}

	if len(trips) > 0 {
		rank := trips[0]
		picked := pickByRank(cards, rank, 3)
		kickers := bestExcluding(cards, 2, rank)
		return Evaluation{
			Ranking:     ThreeOfAKind,
			Cards:       append(picked, kickers...),
			HighCard:    rank,
			Kickers:     ranksOf(kickers),
			Description: fmt.Sprintf("Three of a Kind, %ss", rank),
		}, nil
	}

	if len(pairs) >= 2 {
		top, second := pairs[0], pairs[1]
		hand := append(pickByRank(cards, top, 2), pickByRank(cards, second, 2)...)
		kicker := bestExcluding(cards, 1, top, second)
		return Evaluation{
			Ranking:     TwoPair,
			Cards:       append(hand, kicker...),
			HighCard:    top,
			Kickers:     append([]deck.Rank{second}, ranksOf(kicker)...),
			Description: fmt.Sprintf("Two Pair, %ss and %ss", top, second),
		}, nil
	}

	if len(pairs) == 1 {
		rank := pairs[0]
		picked := pickByRank(cards, rank, 2)
		kickers := bestExcluding(cards, 3, rank)
		return Evaluation{
			Ranking:     Pair,
			Cards:       append(picked, kickers...),
			HighCard:    rank,
			Kickers:     ranksOf(kickers),
			Description: fmt.Sprintf("Pair of %ss", rank),
		}, nil
	}

	five := bestExcluding(cards, 5)
	return Evaluation{
		Ranking:     HighCard,
		Cards:       five,
		HighCard:    five[0].Rank,
		Kickers:     ranksOf(five[1:]),
		Description: fmt.Sprintf("High Card, %s", five[0].Rank),
	}, nil
}

// Compare returns >0 if a beats b, <0 if b beats a, 0 on an exact tie.
// Order: ranking, then high card, then kickers in declared order.
// A missing kicker compares lower than any present kicker.
func Compare(a, b Evaluation) int {
	if a.Ranking != b.Ranking {
		return int(a.Ranking) - int(b.Ranking)
	}
	if a.HighCard != b.HighCard {
		return int(a.HighCard) - int(b.HighCard)
	}
	for i := 0; i < len(a.Kickers) || i < len(b.Kickers); i++ {
		ak, bk := deck.Rank(0), deck.Rank(0)
		if i < len(a.Kickers) {
			ak = a.Kickers[i]
		}
		if i < len(b.Kickers) {
			bk = b.Kickers[i]
		}
		if ak != bk {
			return int(ak) - int(bk)
		}
	}
	return 0
}

// straightHigh finds the highest straight in a set of ranks, including
// the wheel (A-2-3-4-5, reported as Five high)
func straightHigh(ranks []deck.Rank) (deck.Rank, bool) {
	present := make(map[deck.Rank]bool, len(ranks))
	for _, r := range ranks {
		present[r] = true
	}

	for high := deck.Ace; high >= deck.Six; high-- {
		run := true
		for r := high; r > high-5; r-- {
			if !present[r] {
				run = false
				break
			}
		}
		if run {
			return high, true
		}
	}

	// Wheel: ace plays low
	if present[deck.Ace] && present[deck.Two] && present[deck.Three] && present[deck.Four] && present[deck.Five] {
		return deck.Five, true
	}

	return 0, false
}

// straightCards picks one card per rank of the straight ending at high.
// Cards must already be sorted descending.
func straightCards(cards []deck.Card, high deck.Rank) []deck.Card {
	wanted := make([]deck.Rank, 0, 5)
	if high == deck.Five {
		wanted = append(wanted, deck.Ace, deck.Five, deck.Four, deck.Three, deck.Two)
	} else {
		for r := high; r > high-5; r-- {
			wanted = append(wanted, r)
		}
	}

	out := make([]deck.Card, 0, 5)
	for _, w := range wanted {
		for _, c := range cards {
			if c.Rank == w {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// groupRanks splits rank counts into quads, trips and pairs, each
// sorted descending
func groupRanks(counts map[deck.Rank]int) (quads, trips, pairs []deck.Rank) {
	for r, n := range counts {
		switch n {
		case 4:
			quads = append(quads, r)
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		}
	}
	sortRanksDesc(quads)
	sortRanksDesc(trips)
	sortRanksDesc(pairs)
	return quads, trips, pairs
}

func distinctRanks(counts map[deck.Rank]int) []deck.Rank {
	ranks := make([]deck.Rank, 0, len(counts))
	for r := range counts {
		ranks = append(ranks, r)
	}
	sortRanksDesc(ranks)
	return ranks
}

// pickByRank returns up to n cards of the given rank
func pickByRank(cards []deck.Card, rank deck.Rank, n int) []deck.Card {
	out := make([]deck.Card, 0, n)
	for _, c := range cards {
		if c.Rank == rank {
			out = append(out, c)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// bestExcluding returns the n highest cards whose rank is not excluded
func bestExcluding(cards []deck.Card, n int, exclude ...deck.Rank) []deck.Card {
	excluded := make(map[deck.Rank]bool, len(exclude))
	for _, r := range exclude {
		excluded[r] = true
	}

	rest := make([]deck.Card, 0, len(cards))
	for _, c := range cards {
		if !excluded[c.Rank] {
			rest = append(rest, c)
		}
	}
	sortDesc(rest)
	if len(rest) > n {
		rest = rest[:n]
	}
	return rest
}

func ranksOf(cards []deck.Card) []deck.Rank {
	ranks := make([]deck.Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	return ranks
}

func sortDesc(cards []deck.Card) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Rank != cards[j].Rank {
			return cards[i].Rank > cards[j].Rank
		}
		return cards[i].Suit > cards[j].Suit
	})
}

func sortRanksDesc(ranks []deck.Rank) {
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })
}
