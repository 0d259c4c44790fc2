package cartsync

import (
	"context"

	"storefront/internal/domain"
)

// InventoryOracle answers availability questions. Its answers are advisory:
// a failed check never blocks a cart mutation.
type InventoryOracle interface {
	CheckInventory(ctx context.Context, productID, size, color string, quantity int) (domain.Availability, error)
}

// LineStock is the last known stock picture for one cart line.
type LineStock struct {
	Status            domain.StockStatus `json:"stockStatus,omitempty"`
	AvailableQuantity *int               `json:"availableQuantity,omitempty"`
}

func stockFrom(av domain.Availability, lowThreshold int) LineStock {
	if av.AvailableQuantity == nil {
		if av.Available {
			return LineStock{Status: domain.InStock}
		}
		return LineStock{Status: domain.OutOfStock}
	}
	q := *av.AvailableQuantity
	return LineStock{Status: domain.ClassifyStock(q, lowThreshold), AvailableQuantity: &q}
}

// grant decides how many of want units may be added on top of inCart units
// already present. ok is false when nothing can be added. A failed check
// grants everything.
func grant(av domain.Availability, checkErr error, inCart, want int) (granted int, ok bool) {
	switch {
	case checkErr != nil, av.Available:
		return want, true
	case av.AvailableQuantity == nil:
		return 0, false
	}
	room := *av.AvailableQuantity - inCart
	if room <= 0 {
		return 0, false
	}
	if room < want {
		return room, true
	}
	return want, true
}
