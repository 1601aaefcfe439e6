package game

import "testing"

func TestSettleNaturalPaysThreeToTwo(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(1, Spades), card(13, Hearts)}, Stake: 100}},
		[]Card{card(9, Clubs), card(7, Diamonds)},
		0,
	)
	if out.Tag != ResultBlackjack {
		t.Fatalf("tag = %s, want blackjack", out.Tag)
	}
	if out.TotalPayout != 250 {
		t.Fatalf("payout = %d, want 250", out.TotalPayout)
	}
}

func TestSettlePush(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(10, Spades), card(9, Hearts)}, Stake: 100}},
		[]Card{card(10, Clubs), card(9, Diamonds)},
		0,
	)
	if out.Tag != ResultPush {
		t.Fatalf("tag = %s, want push", out.Tag)
	}
	if out.TotalPayout != 100 {
		t.Fatalf("payout = %d, want 100", out.TotalPayout)
	}
}

func TestSettleInsuranceCoversDealerNatural(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(10, Spades), card(6, Hearts)}, Stake: 100}},
		[]Card{card(1, Clubs), card(13, Diamonds)},
		50,
	)
	if out.Tag != ResultInsuranceWin {
		t.Fatalf("tag = %s, want insurance_win", out.Tag)
	}
	if out.InsurancePayout != 150 {
		t.Fatalf("insurance payout = %d, want 150", out.InsurancePayout)
	}
	// The main hand lost, so the insurance payout is the whole payout.
	if out.TotalPayout != 150 {
		t.Fatalf("total payout = %d, want 150", out.TotalPayout)
	}
}

func TestSettleBustLosesEvenAgainstDealerBust(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(10, Spades), card(6, Hearts), card(9, Clubs)}, Stake: 100}},
		[]Card{card(10, Clubs), card(6, Diamonds), card(9, Hearts)},
		0,
	)
	if out.Tag != ResultLost || out.TotalPayout != 0 {
		t.Fatalf("got %s/%d, want lost/0", out.Tag, out.TotalPayout)
	}
}

func TestSettleDealerBustPaysEvenMoney(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(10, Spades), card(8, Hearts)}, Stake: 100}},
		[]Card{card(10, Clubs), card(6, Diamonds), card(9, Hearts)},
		0,
	)
	if out.Tag != ResultWon || out.TotalPayout != 200 {
		t.Fatalf("got %s/%d, want won/200", out.Tag, out.TotalPayout)
	}
}

func TestSettleBothNaturalsPush(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(1, Spades), card(12, Hearts)}, Stake: 100}},
		[]Card{card(1, Clubs), card(13, Diamonds)},
		0,
	)
	if out.Tag != ResultPush || out.TotalPayout != 100 {
		t.Fatalf("got %s/%d, want push/100", out.Tag, out.TotalPayout)
	}
}

func TestSettleSplitHandsAggregate(t *testing.T) {
	out := Settle(
		[]FinalHand{
			{Cards: []Card{card(10, Spades), card(9, Hearts)}, Stake: 100},
			{Cards: []Card{card(10, Hearts), card(5, Clubs), card(9, Diamonds)}, Stake: 100},
		},
		[]Card{card(10, Clubs), card(8, Diamonds)},
		0,
	)
	// 19 beats 18, the busted split hand loses: 200 paid on 200 staked.
	if out.TotalPayout != 200 {
		t.Fatalf("total payout = %d, want 200", out.TotalPayout)
	}
	if out.Tag != ResultPush {
		t.Fatalf("tag = %s, want push", out.Tag)
	}
	if out.Hands[0].Tag != ResultWon || out.Hands[1].Tag != ResultLost {
		t.Fatalf("hand tags = %s,%s", out.Hands[0].Tag, out.Hands[1].Tag)
	}
}

func TestSettleInsuranceForfeitedWithoutDealerNatural(t *testing.T) {
	out := Settle(
		[]FinalHand{{Cards: []Card{card(10, Spades), card(9, Hearts)}, Stake: 100}},
		[]Card{card(1, Clubs), card(7, Diamonds), card(2, Hearts)},
		50,
	)
	if out.InsurancePayout != 0 {
		t.Fatalf("insurance payout = %d, want 0", out.InsurancePayout)
	}
	// Dealer holds a soft 20, player 19 loses the main hand too.
	if out.Tag != ResultLost || out.TotalPayout != 0 {
		t.Fatalf("got %s/%d, want lost/0", out.Tag, out.TotalPayout)
	}
}
