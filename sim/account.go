package sim

// Account is the single mutable money aggregate for a run. Balance is free
// capital; Reserve is the emergency pool tapped only when a settlement would
// push Balance negative.
type Account struct {
	Balance  float64
	Reserve  float64
	Bankrupt bool
}

// Settle applies a signed cash delta. A resulting deficit drains Reserve
// first; whatever the reserve cannot cover clamps Balance to zero and marks
// the account bankrupt. Balance never goes negative.
func (a *Account) Settle(delta float64) {
	a.Balance += delta
	if a.Balance >= 0 {
		return
	}

	deficit := -a.Balance
	if a.Reserve >= deficit {
		a.Reserve -= deficit
		a.Balance = 0
		return
	}

	a.Balance = 0
	a.Reserve = 0
	a.Bankrupt = true
}

// CanReserve reports whether free balance covers a margin reservation.
func (a *Account) CanReserve(margin float64) bool {
	return a.Balance >= margin
}
