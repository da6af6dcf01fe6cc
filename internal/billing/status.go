package billing

// DeriveStatus maps the ledger balance onto a payment status. Overpayment
// classifies as paid. The function is the single writer of the materialized
// status column: callers always re-derive from current data, never patch.
func DeriveStatus(totalTTC, paidToDate float64) Status {
	switch {
	case paidToDate <= 0:
		return StatusUnpaid
	case paidToDate < totalTTC:
		return StatusPartial
	default:
		return StatusPaid
	}
}

// AmountDue returns the outstanding balance, floored at zero so overpayments
// read as fully settled.
func AmountDue(totalTTC, paidToDate float64) float64 {
	due := RoundMoney(totalTTC - paidToDate)
	if due < 0 {
		return 0
	}
	return due
}
