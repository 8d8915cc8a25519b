package domain

import "time"

// Product is a catalogue row joined with its stock level.
type Product struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	Label     string  `json:"label"`
	Brand     string  `json:"brand,omitempty"`
	Quantity  float64 `json:"quantity"`
	SellPrice float64 `json:"sell_price"`
	BuyPrice  float64 `json:"buy_price"`
}

// DisplayName is the spoken name of the product.
func (p Product) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Code
}

type SalesTotals struct {
	Count    int     `json:"count"`
	TotalCDF float64 `json:"total_cdf"`
	TotalUSD float64 `json:"total_usd"`
}

type DebtTotals struct {
	Count    int     `json:"count"`
	TotalCDF float64 `json:"total_cdf"`
	TotalUSD float64 `json:"total_usd"`
}

type Debt struct {
	ID         int64      `json:"id"`
	ClientName string     `json:"client_name"`
	AmountCDF  float64    `json:"amount_cdf"`
	AmountUSD  float64    `json:"amount_usd"`
	Status     string     `json:"status"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

type Sale struct {
	ID            int64     `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientName    string    `json:"client_name,omitempty"`
	TotalCDF      float64   `json:"total_cdf"`
	TotalUSD      float64   `json:"total_usd"`
	CreatedAt     time.Time `json:"created_at"`
}
