package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name       string
		totalTTC   float64
		paidToDate float64
		want       Status
	}{
		{"no payments", 240, 0, StatusUnpaid},
		{"negative balance treated as unpaid", 240, -10, StatusUnpaid},
		{"partial payment", 240, 120, StatusPartial},
		{"one cent short", 240, 239.99, StatusPartial},
		{"exact settlement", 240, 240, StatusPaid},
		{"overpayment", 240, 300, StatusPaid},
		{"zero total with payment", 0, 10, StatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveStatus(tc.totalTTC, tc.paidToDate))
		})
	}
}

func TestDeriveStatusIdempotent(t *testing.T) {
	first := DeriveStatus(500, 250)
	second := DeriveStatus(500, 250)
	assert.Equal(t, first, second)
}

func TestAmountDue(t *testing.T) {
	assert.Equal(t, 120.0, AmountDue(240, 120))
	assert.Equal(t, 0.0, AmountDue(240, 240))
	assert.Equal(t, 0.0, AmountDue(240, 300))
}
