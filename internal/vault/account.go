package vault

import (
	"github.com/shopspring/decimal"
)

// Account is a single settlement account scoped to a tenant.
//
// Balance carries the speculative net position: reservations are applied to it
// eagerly when promised, not deferred until commit. Blocking tracks capacity
// consumed by outstanding reservations — it goes down when a reservation opens
// and comes back up when the reservation resolves either way.
type Account struct {
	Format       string
	Currency     string
	BalanceCheck bool
	Balance      decimal.Decimal
	Blocking     decimal.Decimal
	Promised     map[string]decimal.Decimal
}

func newAccount(format, currency string, balanceCheck bool) *Account {
	return &Account{
		Format:       format,
		Currency:     currency,
		BalanceCheck: balanceCheck,
		Balance:      decimal.Zero,
		Blocking:     decimal.Zero,
		Promised:     map[string]decimal.Decimal{},
	}
}

// applyReservation opens a promise. The sign convention (balance up, blocking
// down) is paired with reverseReservation; keep both sides here and nowhere else.
func (a *Account) applyReservation(transaction string, amount decimal.Decimal) {
	a.Promised[transaction] = amount
	a.Balance = a.Balance.Add(amount)
	a.Blocking = a.Blocking.Sub(amount)
}

// reverseReservation undoes an open promise in full, both counters.
func (a *Account) reverseReservation(transaction string) {
	amount := a.Promised[transaction]
	a.Balance = a.Balance.Sub(amount)
	a.Blocking = a.Blocking.Add(amount)
	delete(a.Promised, transaction)
}

// settleReservation finalizes an open promise. Balance already reflects the
// reserved amount, so only blocking capacity is released.
func (a *Account) settleReservation(transaction string) {
	amount := a.Promised[transaction]
	a.Blocking = a.Blocking.Add(amount)
	delete(a.Promised, transaction)
}

// clone returns a deep copy safe to hand out for assertions.
func (a *Account) clone() Account {
	promised := make(map[string]decimal.Decimal, len(a.Promised))
	for tx, amount := range a.Promised {
		promised[tx] = amount
	}
	cp := *a
	cp.Promised = promised
	return cp
}
