package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
	"github.com/fairyhunter13/shop-state-engine/internal/remote"
)

type fakeClient struct {
	listFn   func(ctx context.Context) ([]model.Product, error)
	createFn func(ctx context.Context, draft model.ProductDraft) (model.Product, error)
	updateFn func(ctx context.Context, id string, patch model.ProductPatch) error
	deleteFn func(ctx context.Context, id string) error
}

var errNotWired = fmt.Errorf("%w: fake endpoint not wired", apperr.ErrRemote)

func (f *fakeClient) List(ctx context.Context) ([]model.Product, error) {
	if f.listFn == nil {
		return nil, errNotWired
	}
	return f.listFn(ctx)
}

func (f *fakeClient) Create(ctx context.Context, draft model.ProductDraft) (model.Product, error) {
	if f.createFn == nil {
		return model.Product{}, errNotWired
	}
	return f.createFn(ctx, draft)
}

func (f *fakeClient) Update(ctx context.Context, id string, patch model.ProductPatch) error {
	if f.updateFn == nil {
		return errNotWired
	}
	return f.updateFn(ctx, id, patch)
}

func (f *fakeClient) Delete(ctx context.Context, id string) error {
	if f.deleteFn == nil {
		return errNotWired
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeClient) PlaceOrder(context.Context, model.Order) (string, error) {
	return "", errNotWired
}

func (f *fakeClient) Authenticate(context.Context, model.Credentials, remote.AuthMode) (model.AuthResult, error) {
	return model.AuthResult{}, errNotWired
}

func product(id, owner, title string) model.Product {
	return model.Product{ID: id, OwnerID: owner, Title: title, Price: decimal.NewFromInt(10)}
}

func listOf(products ...model.Product) func(context.Context) ([]model.Product, error) {
	return func(context.Context) ([]model.Product, error) {
		return append([]model.Product(nil), products...), nil
	}
}

func TestRefreshReplacesBothSubsets(t *testing.T) {
	fc := &fakeClient{listFn: listOf(
		product("p1", "u1", "Mine"),
		product("p2", "u2", "Theirs"),
	)}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if n := len(c.Available()); n != 2 {
		t.Fatalf("expected 2 available, got %d", n)
	}
	owned := c.Owned()
	if len(owned) != 1 || owned[0].ID != "p1" {
		t.Fatalf("unexpected owned subset: %+v", owned)
	}

	// a later refresh is full reconciliation, not a merge
	fc.listFn = listOf(product("p3", "u2", "New"))
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	avail := c.Available()
	if len(avail) != 1 || avail[0].ID != "p3" {
		t.Fatalf("expected wholesale replace, got %+v", avail)
	}
	if n := len(c.Owned()); n != 0 {
		t.Fatalf("expected owned emptied, got %d", n)
	}
}

func TestRefreshFailureLeavesStateUnchanged(t *testing.T) {
	fc := &fakeClient{listFn: listOf(product("p1", "u1", "Mine"))}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := c.Available()
	fc.listFn = func(context.Context) ([]model.Product, error) {
		return nil, fmt.Errorf("%w: boom", apperr.ErrRemote)
	}
	if err := c.Refresh(context.Background(), "u1"); !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !reflect.DeepEqual(before, c.Available()) {
		t.Fatalf("catalog changed on failed refresh")
	}
}

func TestCreateAppendsOnSuccess(t *testing.T) {
	fc := &fakeClient{
		createFn: func(_ context.Context, draft model.ProductDraft) (model.Product, error) {
			return model.Product{ID: "srv-1", OwnerID: "u1", Title: draft.Title, Price: draft.Price}, nil
		},
	}
	c := New(fc)
	p, err := c.Create(context.Background(), model.ProductDraft{Title: "Book", Price: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID != "srv-1" {
		t.Fatalf("expected server-assigned id, got %q", p.ID)
	}
	if len(c.Available()) != 1 || len(c.Owned()) != 1 {
		t.Fatalf("expected product in both subsets")
	}
}

func TestCreateValidation(t *testing.T) {
	c := New(&fakeClient{})
	if _, err := c.Create(context.Background(), model.ProductDraft{Price: decimal.NewFromInt(1)}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}
	if _, err := c.Create(context.Background(), model.ProductDraft{Title: "T", Price: decimal.NewFromInt(-1)}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
	if n := len(c.Available()); n != 0 {
		t.Fatalf("expected nothing added, got %d", n)
	}
}

func TestCreateRemoteFailureAddsNothing(t *testing.T) {
	fc := &fakeClient{
		createFn: func(context.Context, model.ProductDraft) (model.Product, error) {
			return model.Product{}, fmt.Errorf("%w: boom", apperr.ErrRemote)
		},
	}
	c := New(fc)
	if _, err := c.Create(context.Background(), model.ProductDraft{Title: "Book", Price: decimal.NewFromInt(5)}); !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if n := len(c.Available()); n != 0 {
		t.Fatalf("expected nothing added, got %d", n)
	}
}

func TestUpdateRequiresOwnership(t *testing.T) {
	fc := &fakeClient{listFn: listOf(product("p1", "u2", "Theirs"))}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := c.Available()
	title := "Hijacked"
	err := c.Update(context.Background(), "p1", model.ProductPatch{Title: &title})
	if !errors.Is(err, apperr.ErrNotOwner) {
		t.Fatalf("expected not-owner error, got %v", err)
	}
	if !reflect.DeepEqual(before, c.Available()) {
		t.Fatalf("catalog changed on rejected update")
	}
}

func TestUpdateAppliesPatchInPlace(t *testing.T) {
	fc := &fakeClient{
		listFn:   listOf(product("p1", "u1", "Old"), product("p2", "u2", "Other")),
		updateFn: func(context.Context, string, model.ProductPatch) error { return nil },
	}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	title := "New"
	if err := c.Update(context.Background(), "p1", model.ProductPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	avail := c.Available()
	if avail[0].ID != "p1" || avail[0].Title != "New" {
		t.Fatalf("expected in-place update at same position, got %+v", avail)
	}
	// nil patch fields stay unchanged
	if !avail[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("price changed by a patch that did not set it")
	}
	if owned := c.Owned(); owned[0].Title != "New" {
		t.Fatalf("owned subset not updated: %+v", owned)
	}
}

func TestUpdateRemoteFailureLeavesCatalogUnchanged(t *testing.T) {
	fc := &fakeClient{
		listFn: listOf(product("p1", "u1", "Old")),
		updateFn: func(context.Context, string, model.ProductPatch) error {
			return fmt.Errorf("%w: boom", apperr.ErrRemote)
		},
	}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := c.Available()
	title := "New"
	if err := c.Update(context.Background(), "p1", model.ProductPatch{Title: &title}); !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !reflect.DeepEqual(before, c.Available()) {
		t.Fatalf("catalog changed on failed update")
	}
}

func TestUpdateCommitSkipsProductDroppedByConcurrentRefresh(t *testing.T) {
	fc := &fakeClient{}
	fc.listFn = listOf(product("p1", "u1", "Old"))
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// while the update is in flight, a refresh replaces the catalog without p1
	fc.updateFn = func(context.Context, string, model.ProductPatch) error {
		fc.listFn = listOf(product("p9", "u2", "Unrelated"))
		return c.Refresh(context.Background(), "u1")
	}
	title := "New"
	if err := c.Update(context.Background(), "p1", model.ProductPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	avail := c.Available()
	if len(avail) != 1 || avail[0].ID != "p9" {
		t.Fatalf("expected the refresh result to win, got %+v", avail)
	}
}

func TestDeleteRemovesFromBothSubsets(t *testing.T) {
	fc := &fakeClient{
		listFn:   listOf(product("p1", "u1", "Mine"), product("p2", "u2", "Theirs")),
		deleteFn: func(context.Context, string) error { return nil },
	}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := c.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(c.Available()) != 1 || len(c.Owned()) != 0 {
		t.Fatalf("expected p1 gone from both subsets")
	}
}

func TestDeleteRequiresOwnership(t *testing.T) {
	fc := &fakeClient{listFn: listOf(product("p1", "u2", "Theirs"))}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := c.Delete(context.Background(), "p1"); !errors.Is(err, apperr.ErrNotOwner) {
		t.Fatalf("expected not-owner error, got %v", err)
	}
	if n := len(c.Available()); n != 1 {
		t.Fatalf("catalog changed on rejected delete")
	}
}

func TestClearOwnedKeepsAvailable(t *testing.T) {
	fc := &fakeClient{listFn: listOf(product("p1", "u1", "Mine"), product("p2", "u2", "Theirs"))}
	c := New(fc)
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	c.ClearOwned()
	if n := len(c.Owned()); n != 0 {
		t.Fatalf("expected owned cleared, got %d", n)
	}
	if n := len(c.Available()); n != 2 {
		t.Fatalf("expected available to survive, got %d", n)
	}
}

func TestOwnedAlwaysSubsetOfAvailable(t *testing.T) {
	fc := &fakeClient{
		listFn: listOf(product("p1", "u1", "Mine"), product("p2", "u2", "Theirs")),
		createFn: func(_ context.Context, draft model.ProductDraft) (model.Product, error) {
			return model.Product{ID: "p3", OwnerID: "u1", Title: draft.Title, Price: draft.Price}, nil
		},
		deleteFn: func(context.Context, string) error { return nil },
	}
	c := New(fc)
	check := func() {
		t.Helper()
		avail := make(map[string]bool)
		for _, p := range c.Available() {
			avail[p.ID] = true
		}
		for _, p := range c.Owned() {
			if !avail[p.ID] {
				t.Fatalf("owned product %s not in available subset", p.ID)
			}
		}
	}
	if err := c.Refresh(context.Background(), "u1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	check()
	if _, err := c.Create(context.Background(), model.ProductDraft{Title: "New", Price: decimal.NewFromInt(3)}); err != nil {
		t.Fatalf("create: %v", err)
	}
	check()
	if err := c.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	check()
}
