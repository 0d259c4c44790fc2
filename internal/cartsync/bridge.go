package cartsync

import (
	"context"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/logging"

	"go.uber.org/zap"
)

// SyncTarget receives local state on login.
type SyncTarget interface {
	AddItem(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error)
	AddSaved(ctx context.Context, productID string, quantity int, size, color string) (domain.CartContents, error)
	AddWishlist(ctx context.Context, productID string) ([]domain.WishlistItem, error)
}

type SyncReport struct {
	Skipped        bool
	CartSynced     int
	CartFailed     int
	SavedSynced    int
	SavedFailed    int
	WishlistSynced int
	WishlistFailed int
}

func (r SyncReport) Failed() int {
	return r.CartFailed + r.SavedFailed + r.WishlistFailed
}

// Bridge migrates anonymous local state to the server at most once per login.
type Bridge struct {
	mu     sync.Mutex
	synced bool
	store  *localstore.Store
	target SyncTarget
	logger *zap.SugaredLogger
}

func NewBridge(store *localstore.Store, target SyncTarget, logger *zap.SugaredLogger) *Bridge {
	return &Bridge{store: store, target: target, logger: logging.OrNop(logger)}
}

func (b *Bridge) Synced() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.synced
}

// Sync pushes every local cart line, saved line and wishlist entry to the
// server and then clears the local slots. Items the server rejects are
// logged and dropped. Later calls are skipped until Reset.
func (b *Bridge) Sync(ctx context.Context) (SyncReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.synced {
		return SyncReport{Skipped: true}, nil
	}

	cart, err := b.store.Cart().GetItems(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	saved, err := b.store.Saved().GetItems(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	wishlist, err := b.store.Wishlist().Items(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	b.synced = true

	var report SyncReport
	for _, it := range cart {
		if _, err := b.target.AddItem(ctx, it.ProductID, it.Quantity, it.Size, it.Color); err != nil {
			b.logger.Warnw("cartsync: dropping cart line", "product_id", it.ProductID, "error", err)
			report.CartFailed++
			continue
		}
		report.CartSynced++
	}
	for _, it := range saved {
		if _, err := b.target.AddSaved(ctx, it.ProductID, it.Quantity, it.Size, it.Color); err != nil {
			b.logger.Warnw("cartsync: dropping saved line", "product_id", it.ProductID, "error", err)
			report.SavedFailed++
			continue
		}
		report.SavedSynced++
	}
	for _, it := range wishlist {
		if _, err := b.target.AddWishlist(ctx, it.ProductID); err != nil {
			b.logger.Warnw("cartsync: dropping wishlist entry", "product_id", it.ProductID, "error", err)
			report.WishlistFailed++
			continue
		}
		report.WishlistSynced++
	}

	if err := b.clearLocal(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// Reset re-arms the bridge for the next login. Local slots are wiped only if
// their contents were already migrated.
func (b *Bridge) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasSynced := b.synced
	b.synced = false
	if !wasSynced {
		return nil
	}
	return b.clearLocal(ctx)
}

func (b *Bridge) clearLocal(ctx context.Context) error {
	if err := b.store.Cart().Clear(ctx); err != nil {
		return err
	}
	if err := b.store.Saved().Clear(ctx); err != nil {
		return err
	}
	return b.store.Wishlist().Clear(ctx)
}
