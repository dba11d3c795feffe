// Package sales exposes point-of-sale transactions recorded by the till integration.
package sales

import "time"

// Item is one line of a sale.
type Item struct {
	ItemID       string  `json:"itemId"`
	ItemName     string  `json:"itemName"`
	ItemQuantity float64 `json:"itemQuantity"`
}

// Transaction is a completed sale.
type Transaction struct {
	ID            int64     `json:"id"`
	Items         []Item    `json:"items"`
	Total         float64   `json:"total"`
	PaymentMethod string    `json:"paymentMethod"`
	Date          time.Time `json:"date"`
}

// ListFilter narrows the transaction listing. Zero values disable a bound.
type ListFilter struct {
	From          time.Time
	To            time.Time
	PaymentMethod string
}
