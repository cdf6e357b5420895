package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRecord is immutable once appended to the ledger.
type PurchaseRecord struct {
	ID                  int64
	UserID              int64
	VehicleID           int64
	Quantity            int
	UnitPriceAtPurchase decimal.Decimal
	PurchasedAt         time.Time
}

func (p PurchaseRecord) Total() decimal.Decimal {
	return p.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

type PurchaseSummary struct {
	Quantity int64
	Revenue  decimal.Decimal
}

type VehicleSales struct {
	VehicleID     int64
	Name          string
	Model         string
	ImageURL      string
	TotalQuantity int64
}
