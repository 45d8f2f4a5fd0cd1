// Package message implements the space-delimited line protocol spoken between
// ledger units and the settlement vault.
package message

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// RequestPrefix marks bus traffic addressed to the vault. Anything else is
// pass-through for the relay.
const RequestPrefix = "VaultUnit/"

// accountEventPattern is the full request shape:
//
//	VaultUnit/<tenant> LedgerUnit/<sender> <account> <requestId> <kind> <transactionId> <amount> <currency>
//
// Tokens are capped at 100 non-whitespace characters, the amount is an
// optionally-negative integer or decimal, the currency exactly three
// uppercase letters. No tolerance for extra or missing fields.
var accountEventPattern = regexp.MustCompile(
	`^VaultUnit/(\S{1,100}) LedgerUnit/(\S{1,100}) (\S{1,100}) (\S{1,100}) (\S{1,100}) (\S{1,100}) (-?\d{1,100}\.\d{1,100}|-?\d{1,100}) ([A-Z]{3})$`)

// Request is a parsed account event request. Amount arrives already converted
// to decimal so the state machine never sees an unparsable number.
type Request struct {
	Tenant      string
	Sender      string
	Account     string
	RequestID   string
	Kind        string
	Transaction string
	Amount      decimal.Decimal
	Currency    string
}

// ParseRequest matches raw against the full request pattern. The second
// return is false for anything that is not a well-formed request, including
// payloads that merely carry the VaultUnit/ prefix.
func ParseRequest(raw string) (Request, bool) {
	groups := accountEventPattern.FindStringSubmatch(raw)
	if groups == nil {
		return Request{}, false
	}
	amount, err := decimal.NewFromString(groups[7])
	if err != nil {
		// Unreachable given the pattern, kept as a guard for pattern edits.
		return Request{}, false
	}
	return Request{
		Tenant:      groups[1],
		Sender:      groups[2],
		Account:     groups[3],
		RequestID:   groups[4],
		Kind:        groups[5],
		Transaction: groups[6],
		Amount:      amount,
		Currency:    groups[8],
	}, true
}

// IsRequestCandidate reports whether raw is addressed to the vault at all.
func IsRequestCandidate(raw string) bool {
	return strings.HasPrefix(raw, RequestPrefix)
}

// Reply is an answer addressed back to the requesting ledger unit.
type Reply struct {
	Sender    string
	Tenant    string
	RequestID string
	Account   string
	Code      string
}

func (r Reply) String() string {
	return fmt.Sprintf("LedgerUnit/%s VaultUnit/%s %s %s %s",
		r.Sender, r.Tenant, r.RequestID, r.Account, r.Code)
}

// NewReply builds the reply for a processed request.
func NewReply(req Request, code string) Reply {
	return Reply{
		Sender:    req.Sender,
		Tenant:    req.Tenant,
		RequestID: req.RequestID,
		Account:   req.Account,
		Code:      code,
	}
}
