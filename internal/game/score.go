package game

// Score computes the blackjack value of a hand. Every ace starts at 11 and
// is demoted to 1, one at a time, while the total stays above 21. The result
// does not depend on card order.
func Score(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		r := c.Rank()
		switch {
		case r == 1:
			total += 11
			aces++
		case r >= 10:
			total += 10
		default:
			total += r
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjack reports a natural: exactly two cards worth 21.
func IsBlackjack(cards []Card) bool {
	return len(cards) == 2 && Score(cards) == 21
}

func IsBusted(cards []Card) bool {
	return Score(cards) > 21
}
