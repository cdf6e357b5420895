package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Vehicle struct {
	ID            int64
	CategoryID    int64
	Name          string
	Model         string
	Type          string
	Color         string
	ImageURL      string
	UnitPrice     decimal.Decimal
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Category struct {
	ID         int64
	Name       string
	ParentName string // optional, free text
	CreatedAt  time.Time
}
