// Command cartctl drives the cart engine from a terminal. Anonymous state
// lives in the local store (Redis when REDIS_URL is set, memory otherwise);
// after login every call goes through the storefront API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/internal/cartsync"
	"storefront/internal/client"
	"storefront/internal/config"
	"storefront/internal/localstore"
	"storefront/internal/logging"
	"storefront/internal/session"

	"go.uber.org/zap"
)

const usage = `usage: cartctl [flags] <command> [args]

commands:
  products                       list the catalog
  show                           print the cart with totals
  add <productId> [qty]          add to cart (-size, -color)
  update <lineId> <qty>          change quantity (-size, -color); 0 removes
  remove <lineId>                remove a line
  save <lineId>                  move a line to saved-for-later
  move <lineId>                  move a saved line back to the cart
  unsave <lineId>                drop a saved line
  clear                          empty the cart
  coupon <code>                  apply a coupon and print the cart
  checkout                       mark the order placed and reset the cart
  wish <productId>               add to wishlist
  unwish <productId>             remove from wishlist
  wishlist                       print the wishlist
  signup <email> <password>      create an account
  login <email> <password>       sign in and sync local state
  logout                         sign out
`

type app struct {
	cfg        config.Config
	logger     *zap.SugaredLogger
	kv         localstore.KV
	store      *localstore.Store
	session    *session.Session
	api        *client.Client
	agg        *cartsync.Aggregator
	tokenKey   string
	refreshKey string
}

func main() {
	fs := flag.NewFlagSet("cartctl", flag.ExitOnError)
	size := fs.String("size", "", "variant size")
	color := fs.String("color", "", "variant color")
	timeout := fs.Duration("timeout", 15*time.Second, "overall timeout")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage); fs.PrintDefaults() }
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, "cartctl")
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, closeFn, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init: %v", err)
	}
	defer closeFn()

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:], *size, *color); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*app, func(), error) {
	closeFn := func() {}
	kv := localstore.NewMemoryKV()
	if cfg.RedisURL != "" {
		rc, err := localstore.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		kv = localstore.NewRedisKV(rc, "storefront:")
		closeFn = func() { _ = rc.Close() }
	} else {
		logger.Warn("REDIS_URL not set, local cart will not persist between runs")
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		kv:         kv,
		store:      localstore.New(kv, cfg.LocalSlot),
		session:    session.New(),
		tokenKey:   cfg.LocalSlot + ":token",
		refreshKey: cfg.LocalSlot + ":refresh",
	}
	if raw, ok, err := kv.Get(ctx, a.tokenKey); err != nil {
		logger.Warnw("cartctl: read saved token failed", "error", err)
	} else if ok {
		a.session.Restore(string(raw))
	}

	a.api = client.New(cfg.APIBaseURL, a.session, client.WithLogger(logger))
	pricing := cartsync.Pricing{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingCost:      cfg.FlatShippingCost,
		LowStockThreshold:     cfg.LowStockThreshold,
	}
	a.agg = cartsync.New(cartsync.Deps{
		Session:   a.session,
		Local:     cartsync.NewLocalBackend(a.store, a.api),
		Remote:    cartsync.NewRemoteBackend(a.api),
		Inventory: a.api,
		Coupons:   cartsync.NewCouponResolver(a.api, cfg.LegacyCouponsEnabled, logger),
		Settings:  a.api,
		Bridge:    cartsync.NewBridge(a.store, a.api, logger),
	}, pricing, cfg.DefaultTaxRate, logger)

	a.session.Subscribe(func(authenticated bool) {
		if _, err := a.agg.HandleAuthChange(ctx, authenticated); err != nil {
			logger.Warnw("cartctl: reload after auth change failed", "error", err)
		}
	})
	return a, closeFn, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string, size, color string) error {
	switch cmd {
	case "products":
		products, err := a.api.ListProducts(ctx)
		if err != nil {
			return err
		}
		return printJSON(products)
	case "signup":
		if len(args) < 2 {
			return fmt.Errorf("signup needs <email> <password>")
		}
		customer, err := a.api.Signup(ctx, client.SignupRequest{Email: args[0], Password: args[1]})
		if err != nil {
			return err
		}
		return printJSON(customer)
	case "login":
		if len(args) < 2 {
			return fmt.Errorf("login needs <email> <password>")
		}
		return a.login(ctx, args[0], args[1])
	case "logout":
		return a.logout(ctx)
	case "wishlist":
		return a.printWishlist(ctx)
	case "wish", "unwish":
		if len(args) < 1 {
			return fmt.Errorf("%s needs <productId>", cmd)
		}
		return a.wish(ctx, cmd == "wish", args[0])
	}

	if _, err := a.agg.Load(ctx); err != nil {
		return err
	}

	switch cmd {
	case "show":
		return printJSON(a.agg.Cart())
	case "add":
		if len(args) < 1 {
			return fmt.Errorf("add needs <productId> [qty]")
		}
		qty := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number")
			}
			qty = n
		}
		res, err := a.agg.AddToCart(ctx, args[0], qty, size, color)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w.Message)
		}
		return printJSON(res.Cart)
	case "update":
		if len(args) < 2 {
			return fmt.Errorf("update needs <lineId> <qty>")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity must be a number")
		}
		res, err := a.agg.UpdateCartItem(ctx, args[0], qty, optional(size), optional(color))
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w.Message)
		}
		return printJSON(res.Cart)
	case "remove", "save", "move", "unsave":
		if len(args) < 1 {
			return fmt.Errorf("%s needs <lineId>", cmd)
		}
		ops := map[string]func(context.Context, string) (cartsync.Cart, error){
			"remove": a.agg.RemoveFromCart,
			"save":   a.agg.SaveForLater,
			"move":   a.agg.MoveToCartFromSaved,
			"unsave": a.agg.RemoveSaved,
		}
		cart, err := ops[cmd](ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cart)
	case "clear":
		cart, err := a.agg.ClearCart(ctx)
		if err != nil {
			return err
		}
		return printJSON(cart)
	case "checkout":
		cart, err := a.agg.OrderPlaced(ctx)
		if err != nil {
			return err
		}
		return printJSON(cart)
	case "coupon":
		if len(args) < 1 {
			return fmt.Errorf("coupon needs <code>")
		}
		res, err := a.agg.ApplyCoupon(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, res.Message)
		return printJSON(a.agg.Cart())
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) login(ctx context.Context, email, password string) error {
	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := a.kv.Set(ctx, a.tokenKey, []byte(res.AccessToken)); err != nil {
		return err
	}
	if err := a.kv.Set(ctx, a.refreshKey, []byte(res.RefreshToken)); err != nil {
		return err
	}
	a.session.Login(res.AccessToken, res.Customer)
	return printJSON(a.agg.Cart())
}

// logout revokes the tokens server-side when possible; the local sign-out
// happens regardless.
func (a *app) logout(ctx context.Context) error {
	if a.session.Authenticated() {
		refresh, _, err := a.kv.Get(ctx, a.refreshKey)
		if err != nil {
			a.logger.Warnw("cartctl: read refresh token failed", "error", err)
		}
		if err := a.api.Logout(ctx, string(refresh)); err != nil {
			a.logger.Warnw("cartctl: server logout failed", "error", err)
		}
	}
	for _, key := range []string{a.tokenKey, a.refreshKey} {
		if err := a.kv.Delete(ctx, key); err != nil {
			return err
		}
	}
	a.session.Logout()
	return printJSON(a.agg.Cart())
}

func (a *app) wish(ctx context.Context, add bool, productID string) error {
	if a.session.Authenticated() {
		var err error
		if add {
			_, err = a.api.AddWishlist(ctx, productID)
		} else {
			_, err = a.api.RemoveWishlist(ctx, productID)
		}
		if err != nil {
			return err
		}
		return a.printWishlist(ctx)
	}
	var err error
	if add {
		err = a.store.Wishlist().Add(ctx, productID)
	} else {
		err = a.store.Wishlist().Remove(ctx, productID)
	}
	if err != nil {
		return err
	}
	return a.printWishlist(ctx)
}

func (a *app) printWishlist(ctx context.Context) error {
	if a.session.Authenticated() {
		items, err := a.api.Wishlist(ctx)
		if err != nil {
			return err
		}
		return printJSON(items)
	}
	items, err := a.store.Wishlist().Items(ctx)
	if err != nil {
		return err
	}
	return printJSON(items)
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
