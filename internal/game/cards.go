package game

// Card is the on-chain card identifier, 1..52. Rank and suit are derived,
// never stored: rank 1 is the ace, 11..13 are the face cards, and each suit
// holds 13 consecutive ids.
type Card int

type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	MinCard Card = 1
	MaxCard Card = 52
)

func (c Card) Valid() bool {
	return c >= MinCard && c <= MaxCard
}

// Rank returns 1..13 (1 = ace, 11 = jack, 12 = queen, 13 = king).
func (c Card) Rank() int {
	return (int(c)-1)%13 + 1
}

func (c Card) Suit() Suit {
	return Suit((int(c) - 1) / 13)
}

func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	ranks := [...]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K"}
	suits := [...]string{"s", "h", "d", "c"}
	return ranks[c.Rank()-1] + suits[c.Suit()]
}
