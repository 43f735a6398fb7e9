// Package shop is the composition root: one process-wide state container
// owning the session, catalog, cart, and order ledger. It routes intents to
// the right sub-state, coordinates the cross-cutting effects (order placement
// clears the cart, logout clears the owned catalog), and notifies observers
// synchronously after every committed mutation.
//
// There is no global lock: while an intent awaits its remote call, the other
// sub-states stay freely mutable. Each sub-state restores its own invariant
// atomically at the single point where the remote response is applied.
package shop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/blob"
	"github.com/fairyhunter13/shop-state-engine/internal/cart"
	"github.com/fairyhunter13/shop-state-engine/internal/catalog"
	"github.com/fairyhunter13/shop-state-engine/internal/ledger"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
	"github.com/fairyhunter13/shop-state-engine/internal/obs"
	"github.com/fairyhunter13/shop-state-engine/internal/remote"
	"github.com/fairyhunter13/shop-state-engine/internal/session"
)

// Observer receives the post-commit snapshot synchronously, in the same turn
// as the mutation. Observers must not dispatch intents from the callback.
type Observer func(Snapshot)

// Snapshot is a read-only view of the whole store at one version. Versions
// are monotonically increasing across commits.
type Snapshot struct {
	Version       uint64            `json:"version"`
	Authenticated bool              `json:"authenticated"`
	Session       *model.Session    `json:"session,omitempty"`
	Available     []model.Product   `json:"available_products"`
	Owned         []model.Product   `json:"owned_products"`
	CartItems     []model.CartEntry `json:"cart_items"`
	CartTotals    cart.Totals       `json:"cart_totals"`
	Orders        []model.Order     `json:"orders"`
}

// Store combines the four sub-states. Screens hold no private copies; they
// read snapshots and issue intents.
type Store struct {
	Session *session.Store
	Catalog *catalog.Catalog
	Cart    *cart.Cart
	Ledger  *ledger.Ledger

	subMu  sync.Mutex
	subs   map[int]Observer
	nextID int

	version    atomic.Uint64
	dispatched atomic.Uint64
	failed     atomic.Uint64

	client remote.Client
}

// New wires the sub-states together. blobs may be nil to disable session
// persistence. The session expiry timer is routed through the same effect as
// an explicit logout: clear session, clear owned catalog, notify.
func New(client remote.Client, blobs blob.Store, blobKey string) *Store {
	s := &Store{
		client:  client,
		subs:    make(map[int]Observer),
		Cart:    cart.New(),
		Catalog: catalog.New(client),
		Ledger:  ledger.New(client),
		Session: session.New(blobs, blobKey),
	}
	s.Session.SetExpiryHandler(func() {
		obs.Logger.Warn("session_expired", "error", apperr.ErrSessionExpired.Error())
		s.Catalog.ClearOwned()
		s.notify()
	})
	return s
}

// Subscribe registers an observer and returns its unsubscribe func.
func (s *Store) Subscribe(fn Observer) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns the current state without bumping the version.
func (s *Store) Snapshot() Snapshot {
	return s.buildSnapshot(s.version.Load())
}

func (s *Store) buildSnapshot(version uint64) Snapshot {
	snap := Snapshot{
		Version:       version,
		Authenticated: s.Session.IsAuthenticated(),
		Available:     s.Catalog.Available(),
		Owned:         s.Catalog.Owned(),
		Orders:        s.Ledger.Orders(),
	}
	snap.CartItems, snap.CartTotals = s.Cart.Snapshot()
	if sess, ok := s.Session.Current(); ok {
		snap.Session = &sess
	}
	return snap
}

// notify bumps the state version and delivers the new snapshot to every
// observer, synchronously.
func (s *Store) notify() {
	snap := s.buildSnapshot(s.version.Add(1))
	s.subMu.Lock()
	fns := make([]Observer, 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Metrics reports dispatch counters and the current state version.
func (s *Store) Metrics() (dispatched, failed, version uint64) {
	return s.dispatched.Load(), s.failed.Load(), s.version.Load()
}

// Dispatch routes one intent to its sub-state. A rejected intent leaves all
// state untouched and notifies nobody; a committed one notifies observers
// exactly once.
func (s *Store) Dispatch(ctx context.Context, in Intent) error {
	s.dispatched.Add(1)
	if err := s.dispatch(ctx, in); err != nil {
		s.failed.Add(1)
		return err
	}
	return nil
}

func (s *Store) dispatch(ctx context.Context, in Intent) error {
	switch v := in.(type) {
	case SignUp:
		return s.authenticate(ctx, v.Credentials, remote.AuthSignUp)

	case LogIn:
		return s.authenticate(ctx, v.Credentials, remote.AuthLogIn)

	case LogOut:
		s.Session.Logout()
		s.Catalog.ClearOwned()
		s.notify()
		return nil

	case RestoreSession:
		if err := s.Session.Restore(); err != nil {
			return err
		}
		if s.Session.IsAuthenticated() {
			s.notify()
		}
		return nil

	case FetchProducts:
		if err := s.Catalog.Refresh(ctx, s.Session.UserID()); err != nil {
			return err
		}
		s.notify()
		return nil

	case CreateProduct:
		if err := s.requireAuth(); err != nil {
			return err
		}
		p, err := s.Catalog.Create(ctx, v.Draft)
		if err != nil {
			return err
		}
		obs.Logger.Info("product_created", "product_id", p.ID, "title", p.Title)
		s.notify()
		return nil

	case UpdateProduct:
		if err := s.requireAuth(); err != nil {
			return err
		}
		if err := s.Catalog.Update(ctx, v.ProductID, v.Patch); err != nil {
			return err
		}
		s.notify()
		return nil

	case DeleteProduct:
		if err := s.requireAuth(); err != nil {
			return err
		}
		if err := s.Catalog.Delete(ctx, v.ProductID); err != nil {
			return err
		}
		s.Cart.Remove(v.ProductID)
		s.notify()
		return nil

	case AddToCart:
		p, ok := s.Catalog.Find(v.ProductID)
		if !ok {
			return fmt.Errorf("%w: unknown product %s", apperr.ErrValidation, v.ProductID)
		}
		qty := v.Quantity
		if qty == 0 {
			qty = 1
		}
		if err := s.Cart.Add(p, qty); err != nil {
			return err
		}
		s.notify()
		return nil

	case RemoveFromCart:
		if s.Cart.Remove(v.ProductID) {
			s.notify()
		}
		return nil

	case PlaceOrder:
		if err := s.requireAuth(); err != nil {
			return err
		}
		order, err := s.Ledger.PlaceOrder(ctx, s.Cart)
		if err != nil {
			return err
		}
		obs.Logger.Info("order_placed",
			"order_id", order.ID,
			"items", len(order.Items),
			"total_amount", order.TotalAmount.String(),
		)
		s.notify()
		return nil

	default:
		return fmt.Errorf("%w: unhandled intent %T", apperr.ErrValidation, in)
	}
}

// requireAuth gates user-scoped intents. A session past its expiry instant
// whose timer has not fired yet counts as expired, not merely absent.
func (s *Store) requireAuth() error {
	sess, ok := s.Session.Current()
	if !ok {
		return fmt.Errorf("%w: sign in first", apperr.ErrUnauthenticated)
	}
	if !sess.TokenExpiresAt.After(time.Now()) {
		return apperr.ErrSessionExpired
	}
	return nil
}

// authenticate covers signup and login: both install the issued session the
// same way, then refresh the catalog's owned view for the new user.
func (s *Store) authenticate(ctx context.Context, creds model.Credentials, mode remote.AuthMode) error {
	if creds.Email == "" || creds.Password == "" {
		return fmt.Errorf("%w: email and password are required", apperr.ErrValidation)
	}
	res, err := s.client.Authenticate(ctx, creds, mode)
	if err != nil {
		return err
	}
	if err := s.Session.Login(res.UserID, res.Token, res.ExpiresIn); err != nil {
		return err
	}
	obs.Logger.Info("session_started", "user_id", res.UserID, "mode", string(mode))
	s.notify()
	return nil
}
