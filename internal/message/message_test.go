package message_test

import (
	"strings"
	"testing"

	"lakemock/internal/message"
)

// ============================================================================
// Test: request parsing
// ============================================================================

func TestParseRequest_IntegerAmount(t *testing.T) {
	req, ok := message.ParseRequest("VaultUnit/acme LedgerUnit/sys checking r1 NP t1 -50 USD")
	if !ok {
		t.Fatal("well-formed request should parse")
	}

	if req.Tenant != "acme" {
		t.Errorf("tenant got %q, want %q", req.Tenant, "acme")
	}
	if req.Sender != "sys" {
		t.Errorf("sender got %q, want %q", req.Sender, "sys")
	}
	if req.Account != "checking" {
		t.Errorf("account got %q, want %q", req.Account, "checking")
	}
	if req.RequestID != "r1" {
		t.Errorf("request id got %q, want %q", req.RequestID, "r1")
	}
	if req.Kind != "NP" {
		t.Errorf("kind got %q, want %q", req.Kind, "NP")
	}
	if req.Transaction != "t1" {
		t.Errorf("transaction got %q, want %q", req.Transaction, "t1")
	}
	if req.Amount.String() != "-50" {
		t.Errorf("amount got %s, want -50", req.Amount)
	}
	if req.Currency != "USD" {
		t.Errorf("currency got %q, want %q", req.Currency, "USD")
	}
}

func TestParseRequest_DecimalAmount(t *testing.T) {
	req, ok := message.ParseRequest("VaultUnit/acme LedgerUnit/sys checking r1 NP t1 0.000001 EUR")
	if !ok {
		t.Fatal("decimal amount should parse")
	}
	if req.Amount.String() != "0.000001" {
		t.Errorf("amount got %s, want 0.000001", req.Amount)
	}
}

func TestParseRequest_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"wrong prefix", "LedgerUnit/sys VaultUnit/acme checking r1 NP t1 10 USD"},
		{"missing field", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 USD"},
		{"extra field", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 10 USD extra"},
		{"lowercase currency", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 10 usd"},
		{"long currency", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 10 USDT"},
		{"short currency", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 10 US"},
		{"non-numeric amount", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 ten USD"},
		{"trailing dot amount", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 10. USD"},
		{"double negative", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 --10 USD"},
		{"oversized tenant", "VaultUnit/" + strings.Repeat("a", 101) + " LedgerUnit/sys checking r1 NP t1 10 USD"},
		{"trailing space", "VaultUnit/acme LedgerUnit/sys checking r1 NP t1 10 USD "},
	}

	for _, tc := range cases {
		if _, ok := message.ParseRequest(tc.raw); ok {
			t.Errorf("%s: %q should not parse", tc.name, tc.raw)
		}
	}
}

func TestParseRequest_TokenAtLimit(t *testing.T) {
	tenant := strings.Repeat("a", 100)
	req, ok := message.ParseRequest("VaultUnit/" + tenant + " LedgerUnit/sys checking r1 NP t1 10 USD")
	if !ok {
		t.Fatal("100-char token should parse")
	}
	if req.Tenant != tenant {
		t.Error("tenant should round-trip at the length limit")
	}
}

func TestIsRequestCandidate(t *testing.T) {
	if !message.IsRequestCandidate("VaultUnit/acme whatever") {
		t.Error("VaultUnit/ prefix should be a candidate")
	}
	if message.IsRequestCandidate("LedgerUnit/sys whatever") {
		t.Error("other prefixes are pass-through only")
	}
}

// ============================================================================
// Test: reply formatting
// ============================================================================

func TestReply_String(t *testing.T) {
	req, ok := message.ParseRequest("VaultUnit/acme LedgerUnit/sys checking r1 NP t1 -50 USD")
	if !ok {
		t.Fatal("request should parse")
	}

	got := message.NewReply(req, "InsufficientFunds").String()
	want := "LedgerUnit/sys VaultUnit/acme r1 checking InsufficientFunds"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
