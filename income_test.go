package cryptotax

import "testing"

func TestRecognize(t *testing.T) {
	const mine = "0xAbC0000000000000000000000000000000000001"
	r := NewIncomeRecognizer([]string{mine}, nil)
	c := NewClassifier(nil)

	receive := func(counterparty, notes string) Transaction {
		t := tx("r1", "Receive", "ETH", "1", "2000", "2023-05-01")
		t.WalletAddress = "0xdef0000000000000000000000000000000000002"
		t.CounterpartyAddress = counterparty
		t.Notes = notes
		return t
	}
	bridged := receive("0x9999", "")
	bridged.Type = "Bridge Receive"

	tests := []struct {
		name     string
		tx       Transaction
		want     bool
		wantType IncomeType
	}{
		{"staking reward", tx("s1", "Staking Reward", "SOL", "0.5", "10", "2023-05-01"), true, IncomeStaking},
		{"unstake principal", tx("s2", "Unstake", "SOL", "50", "1000", "2023-05-01"), false, ""},
		{"external receive", receive("0x9999", ""), true, IncomeOther},
		{"from own wallet", receive("0xabc0000000000000000000000000000000000001", ""), false, ""},
		{"to itself", receive("0xDEF0000000000000000000000000000000000002", ""), false, ""},
		{"notes self transfer", receive("", "Internal transfer from Coinbase"), false, ""},
		{"bridge receive", bridged, false, ""},
		{"send", tx("t1", "Send", "ETH", "1", "2000", "2023-05-01"), false, ""},
		{"buy", tx("b1", "Buy", "ETH", "1", "2000", "2023-05-01"), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := r.Recognize(tt.tx, c.ClassifyTransaction(tt.tx))
			if ok != tt.want {
				t.Fatalf("Recognize() ok = %v, want %v", ok, tt.want)
			}
			if !ok {
				return
			}
			if ev.Type != tt.wantType {
				t.Errorf("Recognize().Type = %q, want %q", ev.Type, tt.wantType)
			}
			if !ev.ValueUSD.Equal(tt.tx.ValueUSD.Abs()) {
				t.Errorf("Recognize().ValueUSD = %v, want %v", ev.ValueUSD, tt.tx.ValueUSD)
			}
		})
	}
}
