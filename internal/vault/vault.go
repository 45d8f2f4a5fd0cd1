// Package vault is the in-memory stand-in for the settlement side of the
// ledger: per-tenant accounts plus the promise/commit/rollback state machine
// the relay dispatches into.
//
// The package holds no locks. All mutation is serialized by the relay worker
// goroutine (single writer); callers outside that goroutine may only touch a
// Vault before the relay starts or after it stops.
package vault

import (
	"github.com/shopspring/decimal"
)

// Event kinds as they appear on the wire.
const (
	EventPromise  = "NP"
	EventCommit   = "NC"
	EventRollback = "NR"
)

// Reply is the outcome token sent back to the requesting ledger unit.
// Every input maps to a reply; the state machine never fails with an error.
type Reply string

const (
	ReplyPromiseAccepted   Reply = "PromiseAccepted"
	ReplyCurrencyMismatch  Reply = "CurrencyMismatch"
	ReplyInsufficientFunds Reply = "InsufficientFunds"
	ReplyCommitAccepted    Reply = "CommitAccepted"
	ReplyCommitUnknown     Reply = "CommitUnknown"
	ReplyRollbackAccepted  Reply = "RollbackAccepted"
	ReplyAccountUnknown    Reply = "AccountUnknown"
	ReplyUnrecognized      Reply = "Unrecognized"
)

// Vault holds every tenant's accounts for the duration of a test run.
type Vault struct {
	tenants map[string]map[string]*Account
}

func New() *Vault {
	return &Vault{tenants: map[string]map[string]*Account{}}
}

// Reset wipes all tenants. Always succeeds.
func (v *Vault) Reset() {
	v.tenants = map[string]map[string]*Account{}
}

func (v *Vault) account(tenant, name string) *Account {
	accounts, ok := v.tenants[tenant]
	if !ok {
		return nil
	}
	return accounts[name]
}

func (v *Vault) AccountExists(tenant, name string) bool {
	return v.account(tenant, name) != nil
}

// CreateAccount inserts a fresh account with zero balances and no open
// promises. Returns false without mutation when the account already exists.
func (v *Vault) CreateAccount(tenant, name, format, currency string, balanceCheck bool) bool {
	if v.AccountExists(tenant, name) {
		return false
	}
	if _, ok := v.tenants[tenant]; !ok {
		v.tenants[tenant] = map[string]*Account{}
	}
	v.tenants[tenant][name] = newAccount(format, currency, balanceCheck)
	return true
}

// Snapshot returns a read-only deep copy for assertions.
func (v *Vault) Snapshot(tenant, name string) (Account, bool) {
	account := v.account(tenant, name)
	if account == nil {
		return Account{}, false
	}
	return account.clone(), true
}

// ProcessAccountEvent runs one step of the reservation protocol and returns
// the reply token for the wire. Promise is the only step that can be rejected
// economically; commit and rollback are acknowledgment-style and safe to
// replay under at-least-once delivery.
func (v *Vault) ProcessAccountEvent(tenant, name, kind, transaction string, amount decimal.Decimal, currency string) Reply {
	switch kind {
	case EventPromise:
		return v.processPromise(tenant, name, transaction, amount, currency)
	case EventCommit:
		return v.processCommit(tenant, name, transaction)
	case EventRollback:
		return v.processRollback(tenant, name, transaction)
	default:
		return ReplyUnrecognized
	}
}

func (v *Vault) processPromise(tenant, name, transaction string, amount decimal.Decimal, currency string) Reply {
	account := v.account(tenant, name)
	if account == nil {
		return ReplyAccountUnknown
	}
	if _, open := account.Promised[transaction]; open {
		// Replay of an open promise must not double-reserve.
		return ReplyPromiseAccepted
	}
	if currency != account.Currency {
		return ReplyCurrencyMismatch
	}
	if account.BalanceCheck && account.Balance.Add(amount).IsNegative() {
		return ReplyInsufficientFunds
	}
	account.applyReservation(transaction, amount)
	return ReplyPromiseAccepted
}

func (v *Vault) processCommit(tenant, name, transaction string) Reply {
	account := v.account(tenant, name)
	if account == nil {
		return ReplyAccountUnknown
	}
	if _, open := account.Promised[transaction]; !open {
		return ReplyCommitUnknown
	}
	account.settleReservation(transaction)
	return ReplyCommitAccepted
}

func (v *Vault) processRollback(tenant, name, transaction string) Reply {
	account := v.account(tenant, name)
	if account == nil {
		return ReplyRollbackAccepted
	}
	if _, open := account.Promised[transaction]; !open {
		// Already resolved or never seen — treated as rolled back.
		return ReplyRollbackAccepted
	}
	account.reverseReservation(transaction)
	return ReplyRollbackAccepted
}
