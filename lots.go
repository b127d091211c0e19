package cryptotax

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lot represents a single acquisition of an asset, used for cost basis calculations.
type Lot struct {
	Asset string
	// Amount is the quantity originally acquired.
	Amount decimal.Decimal
	// Remaining is the quantity still held. It only decreases.
	Remaining decimal.Decimal
	// UnitCost is the USD cost of one unit.
	UnitCost            decimal.Decimal
	AcquiredAt          time.Time
	SourceTransactionID string

	cost decimal.Decimal // cost of the remaining quantity
	seq  int             // insertion order, breaks ordering ties
}

// Cost returns the cost basis of the remaining quantity.
func (l Lot) Cost() decimal.Decimal { return l.cost }

// LotMatch is the portion of a lot consumed by a disposal.
type LotMatch struct {
	SourceTransactionID string          `json:"sourceTransactionId,omitempty"`
	AcquiredAt          time.Time       `json:"acquiredAt"`
	UnitCost            decimal.Decimal `json:"unitCost"`
	Amount              decimal.Decimal `json:"amount"`
	CostBasis           decimal.Decimal `json:"costBasis"`
}

// InsufficientLotsError is returned by [Inventory.Consume] when the requested
// amount exceeds what is held. The lots that were available are still consumed.
type InsufficientLotsError struct {
	Asset     string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots for %s: requested %s, available %s", e.Asset, e.Requested, e.Available)
}

// Shortfall returns the amount that could not be matched.
func (e *InsufficientLotsError) Shortfall() decimal.Decimal { return e.Requested.Sub(e.Available) }

var errInvalidLot = errors.New("invalid lot")

// Inventory is the ordered collection of open lots of one asset.
//
// Its zero value is not usable, see [NewInventory].
type Inventory struct {
	asset string
	lots  []*Lot
	seq   int
}

// NewInventory returns an empty inventory for asset.
func NewInventory(asset string) *Inventory {
	return &Inventory{asset: asset}
}

// Asset returns the asset held by the inventory.
func (inv *Inventory) Asset() string { return inv.asset }

// Add opens a lot of amount units bought at unitCost each.
func (inv *Inventory) Add(amount, unitCost decimal.Decimal, acquiredAt time.Time, txID string) error {
	return inv.AddCost(amount, unitCost.Mul(amount), acquiredAt, txID)
}

// AddCost opens a lot of amount units for a total cost.
func (inv *Inventory) AddCost(amount, cost decimal.Decimal, acquiredAt time.Time, txID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount %s of %s must be positive", errInvalidLot, amount, inv.asset)
	}
	if cost.IsNegative() {
		return fmt.Errorf("%w: cost %s of %s must not be negative", errInvalidLot, cost, inv.asset)
	}
	inv.seq++
	inv.lots = append(inv.lots, &Lot{
		Asset:               inv.asset,
		Amount:              amount,
		Remaining:           amount,
		UnitCost:            cost.Div(amount),
		AcquiredAt:          acquiredAt,
		SourceTransactionID: txID,
		cost:                cost,
		seq:                 inv.seq,
	})
	return nil
}

// Remaining returns the total quantity held.
func (inv *Inventory) Remaining() decimal.Decimal {
	total := decimal.Zero
	for _, l := range inv.lots {
		total = total.Add(l.Remaining)
	}
	return total
}

// Cost returns the total cost basis of the held quantity.
func (inv *Inventory) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range inv.lots {
		total = total.Add(l.cost)
	}
	return total
}

// Lots returns a copy of the open lots in acquisition order.
func (inv *Inventory) Lots() []Lot {
	out := make([]Lot, 0, len(inv.lots))
	for _, l := range inv.lots {
		out = append(out, *l)
	}
	return out
}

// order returns the open lots sorted for consumption under method.
func (inv *Inventory) order(method MatchingMethod) []*Lot {
	lots := slices.Clone(inv.lots)
	bySeq := func(a, b *Lot) int { return a.seq - b.seq }
	byDate := func(a, b *Lot) int { return a.AcquiredAt.Compare(b.AcquiredAt) }
	switch method {
	case LIFO:
		slices.SortFunc(lots, func(a, b *Lot) int {
			if c := byDate(b, a); c != 0 {
				return c
			}
			return bySeq(b, a)
		})
	case HIFO:
		slices.SortFunc(lots, func(a, b *Lot) int {
			if c := b.UnitCost.Cmp(a.UnitCost); c != 0 {
				return c
			}
			if c := byDate(a, b); c != 0 {
				return c
			}
			return bySeq(a, b)
		})
	default:
		slices.SortFunc(lots, func(a, b *Lot) int {
			if c := byDate(a, b); c != 0 {
				return c
			}
			return bySeq(a, b)
		})
	}
	return lots
}

// Consume removes amount units from the open lots in the order defined by
// method and returns the consumed portions in that order.
//
// When less than amount is held, every open lot is consumed and an
// *InsufficientLotsError is returned along with the matches.
func (inv *Inventory) Consume(amount decimal.Decimal, method MatchingMethod) ([]LotMatch, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
	}
	var matches []LotMatch
	need := amount
	for _, l := range inv.order(method) {
		if !need.IsPositive() {
			break
		}
		take := decimal.Min(need, l.Remaining)
		var cost decimal.Decimal
		if take.Equal(l.Remaining) {
			// Full consumption of this lot
			cost = l.cost
		} else {
			// Partial consumption
			cost = l.cost.Mul(take).Div(l.Remaining)
		}
		l.Remaining = l.Remaining.Sub(take)
		l.cost = l.cost.Sub(cost)
		need = need.Sub(take)
		matches = append(matches, LotMatch{
			SourceTransactionID: l.SourceTransactionID,
			AcquiredAt:          l.AcquiredAt,
			UnitCost:            l.UnitCost,
			Amount:              take,
			CostBasis:           cost,
		})
	}
	inv.lots = slices.DeleteFunc(inv.lots, func(l *Lot) bool { return l.Remaining.IsZero() })

	if need.IsPositive() {
		return matches, &InsufficientLotsError{
			Asset:     inv.asset,
			Requested: amount,
			Available: amount.Sub(need),
		}
	}
	return matches, nil
}

// Inventories owns one [Inventory] per asset. Lots are never shared across assets.
type Inventories struct {
	byAsset map[string]*Inventory
}

// NewInventories returns an empty set of inventories.
func NewInventories() *Inventories {
	return &Inventories{byAsset: make(map[string]*Inventory)}
}

// Get returns the inventory of asset, creating it when needed.
func (s *Inventories) Get(asset string) *Inventory {
	inv, ok := s.byAsset[asset]
	if !ok {
		inv = NewInventory(asset)
		s.byAsset[asset] = inv
	}
	return inv
}

// Assets returns the assets with at least one open lot, in alphabetical order.
func (s *Inventories) Assets() []string {
	var assets []string
	for a, inv := range s.byAsset {
		if len(inv.lots) > 0 {
			assets = append(assets, a)
		}
	}
	slices.SortFunc(assets, strings.Compare)
	return assets
}

// OpenLots returns every open lot, by asset then acquisition order.
func (s *Inventories) OpenLots() []Lot {
	var lots []Lot
	for _, a := range s.Assets() {
		lots = append(lots, s.byAsset[a].Lots()...)
	}
	return lots
}

func (l Lot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("asset", l.Asset)
	w.Append("amount", l.Amount)
	w.Append("remaining", l.Remaining)
	w.Append("unitCost", l.UnitCost)
	w.Append("cost", l.cost)
	w.Append("acquiredAt", l.AcquiredAt.UTC().Format(time.RFC3339))
	w.Optional("sourceTransactionId", l.SourceTransactionID)
	return w.MarshalJSON()
}
