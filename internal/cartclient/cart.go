// Package cartclient holds a shopper's cart on the client side. Without a
// token the cart lives in a local document; with one the server cart is
// the source of truth and the local copy only mirrors its responses.
package cartclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"techshop/internal/domain"
)

type Mode int

const (
	Local Mode = iota
	Remote
)

func (m Mode) String() string {
	if m == Remote {
		return "remote"
	}
	return "local"
}

var (
	ErrQuantity    = errors.New("quantity must be at least 1")
	ErrItemMissing = errors.New("item not in cart")
	ErrSignedIn    = errors.New("already signed in")
)

type Cart struct {
	api   *API
	store Store
	state State
}

// Open loads the persisted state. The mode follows from whether a token is held.
func Open(store Store, api *API) (*Cart, error) {
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Cart{api: api, store: store, state: st}, nil
}

func (c *Cart) Mode() Mode {
	if c.state.Token != "" {
		return Remote
	}
	return Local
}

func (c *Cart) Token() string { return c.state.Token }

func (c *Cart) Items() []Item {
	out := make([]Item, len(c.state.Items))
	copy(out, c.state.Items)
	return out
}

func (c *Cart) Count() int {
	n := 0
	for _, it := range c.state.Items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	t := decimal.Zero
	for _, it := range c.state.Items {
		t = t.Add(it.Total())
	}
	return t
}

func localID(productID, variantID string) string {
	if variantID == "" {
		return productID
	}
	return productID + "-" + variantID
}

// Add puts it on the cart. Locally a line with the same product and variant
// is incremented; remotely the server answer replaces the held line.
func (c *Cart) Add(ctx context.Context, it Item) error {
	if it.Quantity < 1 {
		return ErrQuantity
	}
	if c.Mode() == Remote {
		line, err := c.api.Add(ctx, c.state.Token, domain.MergeLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
		if err != nil {
			return err
		}
		c.upsert(fromLine(line))
		return c.save()
	}

	id := localID(it.ProductID, it.VariantID)
	for i := range c.state.Items {
		if c.state.Items[i].ID == id {
			c.state.Items[i].Quantity += it.Quantity
			return c.localChanged()
		}
	}
	it.ID = id
	c.state.Items = append(c.state.Items, it)
	return c.localChanged()
}

// Update sets the quantity of the item with id. Remotely the server decides
// whether the id exists; the mirror may be stale.
func (c *Cart) Update(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		return ErrQuantity
	}
	if c.Mode() == Remote {
		line, err := c.api.Update(ctx, c.state.Token, id, quantity)
		if err != nil {
			return err
		}
		c.upsert(fromLine(line))
		return c.save()
	}
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemMissing, id)
	}
	c.state.Items[i].Quantity = quantity
	return c.localChanged()
}

func (c *Cart) Remove(ctx context.Context, id string) error {
	if c.Mode() == Remote {
		if err := c.api.Remove(ctx, c.state.Token, id); err != nil {
			return err
		}
		c.drop(id)
		return c.save()
	}
	if c.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrItemMissing, id)
	}
	c.drop(id)
	return c.localChanged()
}

// Clear empties the cart, removing server lines one by one when remote.
func (c *Cart) Clear(ctx context.Context) error {
	if c.Mode() == Remote {
		for len(c.state.Items) > 0 {
			if err := c.Remove(ctx, c.state.Items[0].ID); err != nil {
				return err
			}
		}
		return nil
	}
	c.state.Items = nil
	return c.localChanged()
}

// Refresh replaces the held items with the server cart.
func (c *Cart) Refresh(ctx context.Context) error {
	if c.Mode() != Remote {
		return nil
	}
	cart, err := c.api.Cart(ctx, c.state.Token)
	if err != nil {
		return err
	}
	c.state.Items = c.state.Items[:0]
	for _, l := range cart.Items {
		c.state.Items = append(c.state.Items, fromLine(l))
	}
	return c.save()
}

// SignIn moves to Remote. Local items go to the server in one merge call;
// on failure the cart stays Local with its items and merge id so the call
// can be retried. Lines the server refused are returned.
func (c *Cart) SignIn(ctx context.Context, token string) ([]domain.SkippedLine, error) {
	if c.Mode() == Remote {
		return nil, ErrSignedIn
	}
	var skipped []domain.SkippedLine
	if len(c.state.Items) > 0 {
		if c.state.MergeID == "" {
			c.state.MergeID = uuid.NewString()
			if err := c.save(); err != nil {
				return nil, err
			}
		}
		lines := make([]domain.MergeLine, 0, len(c.state.Items))
		for _, it := range c.state.Items {
			lines = append(lines, domain.MergeLine{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
		}
		res, err := c.api.Merge(ctx, token, c.state.MergeID, lines)
		if err != nil {
			return nil, fmt.Errorf("merge local cart: %w", err)
		}
		skipped = res.Skipped
	}
	c.state = State{Token: token}
	if err := c.save(); err != nil {
		return skipped, err
	}
	return skipped, c.Refresh(ctx)
}

// SignOut drops the token and returns to an empty local cart.
func (c *Cart) SignOut() error {
	c.state = State{}
	return c.save()
}

func (c *Cart) index(id string) int {
	for i, it := range c.state.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) drop(id string) {
	if i := c.index(id); i >= 0 {
		c.state.Items = append(c.state.Items[:i], c.state.Items[i+1:]...)
	}
}

func (c *Cart) upsert(it Item) {
	if i := c.index(it.ID); i >= 0 {
		c.state.Items[i] = it
		return
	}
	c.state.Items = append(c.state.Items, it)
}

// localChanged invalidates a pending merge id before saving.
func (c *Cart) localChanged() error {
	c.state.MergeID = ""
	return c.save()
}

func (c *Cart) save() error { return c.store.Save(c.state) }

func fromLine(l domain.CartLine) Item {
	name := l.ProductName
	if l.VariantValue != "" {
		name += " (" + l.VariantValue + ")"
	}
	return Item{
		ID:        l.ID,
		ProductID: l.ProductID,
		VariantID: l.VariantID,
		Name:      name,
		Price:     l.Price,
		Quantity:  l.Quantity,
	}
}
