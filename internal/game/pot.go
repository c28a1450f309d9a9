package game

import "sort"

// Pot represents a main or side pot
type Pot struct {
	Amount   int
	Eligible []int // Seat numbers eligible to win this pot
}

// BuildPots layers the players' total contributions into a main pot and
// side pots. Contributions from folded players stay in the pots they
// reached but folded players are never eligible. Pots with identical
// eligibility are coalesced.
func BuildPots(players []*Player) []Pot {
	levels := make([]int, 0, len(players))
	seen := make(map[int]bool)
	for _, p := range players {
		if p.TotalBet > 0 && !seen[p.TotalBet] {
			seen[p.TotalBet] = true
			levels = append(levels, p.TotalBet)
		}
	}
	if len(levels) == 0 {
		return nil
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		pot := Pot{}
		for _, p := range players {
			if p.TotalBet >= level {
				pot.Amount += level - prev
				if !p.Folded {
					pot.Eligible = append(pot.Eligible, p.Seat)
				}
			} else if p.TotalBet > prev {
				// Partial contribution from a shorter stack
				pot.Amount += p.TotalBet - prev
			}
		}
		sort.Ints(pot.Eligible)

		if pot.Amount > 0 {
			if n := len(pots); n > 0 && sameSeats(pots[n-1].Eligible, pot.Eligible) {
				pots[n-1].Amount += pot.Amount
			} else {
				pots = append(pots, pot)
			}
		}
		prev = level
	}

	return pots
}

// PotTotal returns the sum of all pot amounts
func PotTotal(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
