package domain

import "time"

type StockStatus string

const (
	StockStatusAvailable StockStatus = "AVAILABLE"
	StockStatusSold      StockStatus = "SOLD"
)

// StockUnit is one sellable instance of a product. A unit transitions
// AVAILABLE -> SOLD exactly once; BuyerID and UsedAt are set by that
// transition and never change afterwards.
type StockUnit struct {
	ID          int64
	ProductCode string
	Content     string
	Status      StockStatus
	AddedAt     time.Time
	UsedAt      *time.Time
	BuyerID     *int64
}

func (u StockUnit) Sold() bool {
	return u.Status == StockStatusSold
}
