package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
	"github.com/fairyhunter13/shop-state-engine/internal/remote/remotetest"
)

func setupClient(t *testing.T) (*HTTPClient, *remotetest.Backend, *string) {
	t.Helper()
	backend := remotetest.New()
	srv := httptest.NewServer(backend.Router())
	t.Cleanup(srv.Close)
	token := new(string)
	c := NewHTTPClient(srv.URL, 5*time.Second, func() string { return *token })
	return c, backend, token
}

func TestAuthenticateSignUpAndLogIn(t *testing.T) {
	c, _, _ := setupClient(t)
	ctx := context.Background()
	creds := model.Credentials{Email: "a@b.c", Password: "pw"}

	up, err := c.Authenticate(ctx, creds, AuthSignUp)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if up.UserID == "" || up.Token == "" || up.ExpiresIn <= 0 {
		t.Fatalf("incomplete auth result: %+v", up)
	}

	in, err := c.Authenticate(ctx, creds, AuthLogIn)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if in.UserID != up.UserID {
		t.Fatalf("login user %s, signup user %s", in.UserID, up.UserID)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	c, _, _ := setupClient(t)
	ctx := context.Background()
	if _, err := c.Authenticate(ctx, model.Credentials{Email: "a@b.c", Password: "pw"}, AuthSignUp); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, err := c.Authenticate(ctx, model.Credentials{Email: "a@b.c", Password: "wrong"}, AuthLogIn)
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestListAndCreate(t *testing.T) {
	c, backend, token := setupClient(t)
	ctx := context.Background()

	seeded := backend.Seed("u-other", model.ProductDraft{Title: "Lamp", Price: decimal.NewFromInt(30)})

	res, err := c.Authenticate(ctx, model.Credentials{Email: "a@b.c", Password: "pw"}, AuthSignUp)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	*token = res.Token

	created, err := c.Create(ctx, model.ProductDraft{Title: "Desk", Price: decimal.RequireFromString("120.50")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.OwnerID != res.UserID {
		t.Fatalf("unexpected created product: %+v", created)
	}

	got, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %d", len(got))
	}
	if got[0].ID != seeded.ID || got[1].ID != created.ID {
		t.Fatalf("listing order mismatch: %+v", got)
	}
	if !got[1].Price.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("price mismatch: %s", got[1].Price)
	}
}

func TestCreateWithoutTokenRejected(t *testing.T) {
	c, _, _ := setupClient(t)
	_, err := c.Create(context.Background(), model.ProductDraft{Title: "Desk", Price: decimal.NewFromInt(1)})
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	c, _, token := setupClient(t)
	ctx := context.Background()

	res, err := c.Authenticate(ctx, model.Credentials{Email: "a@b.c", Password: "pw"}, AuthSignUp)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	*token = res.Token

	created, err := c.Create(ctx, model.ProductDraft{Title: "Desk", Price: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Standing Desk"
	if err := c.Update(ctx, created.ID, model.ProductPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got[0].Title != "Standing Desk" {
		t.Fatalf("patch not applied: %+v", got[0])
	}
	if !got[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unpatched field changed: %s", got[0].Price)
	}

	if err := c.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty listing, got %d", len(got))
	}
}

func TestPlaceOrderReturnsServerID(t *testing.T) {
	c, backend, token := setupClient(t)
	ctx := context.Background()

	res, err := c.Authenticate(ctx, model.Credentials{Email: "a@b.c", Password: "pw"}, AuthSignUp)
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	*token = res.Token

	order := model.Order{
		Items: []model.CartEntry{{
			ProductID: "p1",
			Title:     "Book",
			Price:     decimal.RequireFromString("2.50"),
			Quantity:  2,
			Subtotal:  decimal.RequireFromString("5.00"),
		}},
		TotalAmount: decimal.RequireFromString("5.00"),
		PlacedAt:    time.Now().UTC(),
	}
	id, err := c.PlaceOrder(ctx, order)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a server-assigned order id")
	}
	if backend.OrderCount() != 1 {
		t.Fatalf("expected 1 accepted order, got %d", backend.OrderCount())
	}
}

func TestInjectedFailureIsRemoteError(t *testing.T) {
	c, backend, _ := setupClient(t)
	backend.FailNext()
	_, err := c.List(context.Background())
	if !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	// the failure is one-shot
	if _, err := c.List(context.Background()); err != nil {
		t.Fatalf("expected recovery after injected failure, got %v", err)
	}
}
