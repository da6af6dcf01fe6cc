// Package dashboard serves aggregate read models over the invoice ledger.
// Every aggregate excludes archived invoices.
package dashboard

// ClientTotals pairs a client with their invoiced and paid amounts.
type ClientTotals struct {
	Client   string  `json:"client"`
	Invoiced float64 `json:"invoices"`
	Paid     float64 `json:"paid"`
}

// TotalsReport is the headline dashboard figure set.
type TotalsReport struct {
	TotalInvoiced float64        `json:"total_invoices"`
	TotalPaid     float64        `json:"total_paid"`
	TotalDue      float64        `json:"total_due"`
	ByClient      []ClientTotals `json:"by_client"`
}

// MonthlyRevenue is one month of invoiced revenue, keyed YYYY-MM.
type MonthlyRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// StatusBreakdown counts invoices per derived status.
type StatusBreakdown struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Total  float64 `json:"total"`
}

// TopClient ranks a client by total paid amount.
type TopClient struct {
	Client string  `json:"client"`
	Paid   float64 `json:"paid"`
}
