package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/hieund/stock-allocator/internal/port"
)

// Drift is one product whose SOLD-unit count disagrees with its
// success-ledger count. Non-empty drift means a PartialFailure window was
// hit (or the log was tampered with out of band).
type Drift struct {
	ProductCode     string `json:"product_code"`
	SoldUnits       int    `json:"sold_units"`
	LoggedSuccesses int    `json:"logged_successes"`
}

// Reconciler is the out-of-band sweep comparing claimed-unit counts to
// logged successes per product.
type Reconciler struct {
	stock  port.StockStore
	ledger port.TransactionLedger
	log    *zap.Logger
}

func NewReconciler(stock port.StockStore, ledger port.TransactionLedger) *Reconciler {
	return &Reconciler{
		stock:  stock,
		ledger: ledger,
		log:    zap.L().Named("reconciler"),
	}
}

func (r *Reconciler) Sweep(ctx context.Context) ([]Drift, error) {
	sold, err := r.stock.SoldCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("sold counts: %w", err)
	}

	logged, err := r.ledger.SuccessCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("success counts: %w", err)
	}

	codes := make(map[string]struct{}, len(sold)+len(logged))
	for code := range sold {
		codes[code] = struct{}{}
	}
	for code := range logged {
		codes[code] = struct{}{}
	}

	var drifts []Drift
	for code := range codes {
		if sold[code] == logged[code] {
			continue
		}
		drift := Drift{
			ProductCode:     code,
			SoldUnits:       sold[code],
			LoggedSuccesses: logged[code],
		}
		r.log.Warn("sold units and logged successes disagree",
			zap.String("product_code", code),
			zap.Int("sold_units", drift.SoldUnits),
			zap.Int("logged_successes", drift.LoggedSuccesses),
		)
		drifts = append(drifts, drift)
	}

	sort.Slice(drifts, func(i, j int) bool { return drifts[i].ProductCode < drifts[j].ProductCode })
	return drifts, nil
}
