// Package reports aggregates sales transactions into cached summaries.
package reports

import "time"

// Filter selects the inclusive calendar-day range of a summary, in UTC.
type Filter struct {
	From time.Time
	To   time.Time
}

// MethodTotal aggregates sales for one payment method.
type MethodTotal struct {
	PaymentMethod string  `json:"paymentMethod"`
	Count         int64   `json:"count"`
	Total         float64 `json:"total"`
}

// DayTotal aggregates sales for one calendar day.
type DayTotal struct {
	Date  string  `json:"date"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// SalesSummary is the sales report over a date range.
type SalesSummary struct {
	From             string        `json:"from"`
	To               string        `json:"to"`
	TransactionCount int64         `json:"transactionCount"`
	Total            float64       `json:"total"`
	ByPaymentMethod  []MethodTotal `json:"byPaymentMethod"`
	ByDay            []DayTotal    `json:"byDay"`
}
