package domain

import "time"

// Item is a single tracked instrument: a fiat currency or a crypto asset.
// Code is unique across all items. Rate is the price of one unit expressed
// in the base currency; Nominal is kept for display only.
type Item struct {
	ID        int64
	Code      string
	Title     string
	Rate      float64
	Nominal   int
	Source    string
	IsCrypto  bool
	UpdatedAt time.Time
}
