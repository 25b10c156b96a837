package domain

import "time"

// Receipt is returned to the caller on a fully successful allocation:
// the unit is SOLD and the success ledger entry is durable.
type Receipt struct {
	RequestID   string
	UnitID      int64
	ProductCode string
	Content     string
	BuyerID     int64
	BuyerHandle string
	AllocatedAt time.Time
}

// Product is the catalog view exposed to reporting callers. The engine
// never writes the catalog.
type Product struct {
	Code        string
	Name        string
	Price       int64
	Description string
	FreeUnits   int
}
