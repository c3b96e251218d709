package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"

	"techshop/internal/domain"
	"techshop/internal/repos"
)

var money = accounting.Accounting{Symbol: "$", Precision: 2}

// FormatMoney renders an amount in store currency.
func FormatMoney(d decimal.Decimal) string { return money.FormatMoney(d) }

type CartService struct {
	db    *sqlx.DB
	Carts *repos.CartRepo
	Users *repos.UserRepo
	Inv   *repos.InventoryRepo
}

func NewCartService(db *sqlx.DB) *CartService {
	return &CartService{
		db:    db,
		Carts: repos.NewCartRepo(db),
		Users: repos.NewUserRepo(db),
		Inv:   repos.NewInventoryRepo(db),
	}
}

type AddItem struct {
	ProductID string
	VariantID string
	Quantity  int
}

// cartTx bundles the repos bound to one transaction.
type cartTx struct {
	carts *repos.CartRepo
	users *repos.UserRepo
	inv   *repos.InventoryRepo
}

func (s *CartService) bind(tx *sqlx.Tx) cartTx {
	return cartTx{carts: s.Carts.WithTx(tx), users: s.Users.WithTx(tx), inv: s.Inv.WithTx(tx)}
}

func (t cartTx) cartFor(ctx context.Context, userID string) (string, error) {
	if _, err := t.users.ByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	return t.carts.EnsureCart(ctx, userID)
}

// View returns the user's cart, creating an empty one on first access.
func (s *CartService) View(ctx context.Context, userID string) (domain.Cart, error) {
	var cartID string
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		id, err := s.bind(tx).cartFor(ctx, userID)
		cartID = id
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}
	lines, err := s.Carts.Lines(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	return buildCart(cartID, userID, lines), nil
}

// Add puts quantity units on the cart, merging into an existing line for the
// same product and variant. Inventory is checked but not held.
func (s *CartService) Add(ctx context.Context, userID string, in AddItem) (domain.CartLine, error) {
	if err := checkAdd(in); err != nil {
		return domain.CartLine{}, err
	}
	var line domain.CartLine
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t := s.bind(tx)
		cartID, err := t.cartFor(ctx, userID)
		if err != nil {
			return err
		}
		line, err = t.addLine(ctx, cartID, in)
		return err
	})
	return line, err
}

func checkAdd(in AddItem) error {
	if strings.TrimSpace(in.ProductID) == "" {
		return invalid("productId is required")
	}
	if in.Quantity < 1 {
		return invalid("quantity must be at least 1")
	}
	return nil
}

func (t cartTx) addLine(ctx context.Context, cartID string, in AddItem) (domain.CartLine, error) {
	p, err := t.inv.ProductStock(ctx, in.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartLine{}, ErrProductNotFound
	}
	if err != nil {
		return domain.CartLine{}, err
	}

	itemID, held, found, err := t.carts.FindLine(ctx, cartID, in.ProductID, in.VariantID)
	if err != nil {
		return domain.CartLine{}, err
	}
	// Compared as room left so huge quantities cannot overflow the sum.
	// The product aggregate is checked even for variant lines.
	if in.Quantity > p.Inventory-held {
		return domain.CartLine{}, &StockError{Available: p.Inventory}
	}
	if in.VariantID != "" {
		v, err := t.inv.VariantStock(ctx, in.VariantID, in.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartLine{}, ErrVariantNotFound
		}
		if err != nil {
			return domain.CartLine{}, err
		}
		if in.Quantity > v.Inventory-held {
			return domain.CartLine{}, &StockError{Variant: true, Available: v.Inventory}
		}
	}

	if found {
		err = t.carts.SetQuantity(ctx, itemID, held+in.Quantity)
	} else {
		itemID, err = t.carts.InsertLine(ctx, cartID, in.ProductID, in.VariantID, in.Quantity)
	}
	if err != nil {
		return domain.CartLine{}, err
	}
	return t.carts.Line(ctx, itemID)
}

// Update sets a line's quantity; the line must belong to userID.
func (s *CartService) Update(ctx context.Context, userID, itemID string, quantity int) (domain.CartLine, error) {
	if strings.TrimSpace(itemID) == "" {
		return domain.CartLine{}, invalid("itemId is required")
	}
	if quantity < 1 {
		return domain.CartLine{}, invalid("quantity must be at least 1")
	}
	var line domain.CartLine
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		carts := s.Carts.WithTx(tx)
		cur, err := carts.LineForUser(ctx, itemID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartItemNotFound
		}
		if err != nil {
			return err
		}
		if cur.Inventory < quantity {
			return &StockError{Variant: cur.VariantID != "", Available: cur.Inventory}
		}
		if err := carts.SetQuantity(ctx, itemID, quantity); err != nil {
			return err
		}
		line, err = carts.Line(ctx, itemID)
		return err
	})
	return line, err
}

// Remove deletes a line owned by userID.
func (s *CartService) Remove(ctx context.Context, userID, itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return invalid("itemId is required")
	}
	return repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		carts := s.Carts.WithTx(tx)
		if _, err := carts.LineForUser(ctx, itemID, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCartItemNotFound
			}
			return err
		}
		return carts.DeleteLine(ctx, itemID)
	})
}

// Merge applies locally held lines to the user's cart in one transaction.
// Lines failing validation are skipped and reported; a storage error aborts
// the whole merge. A mergeID seen before makes the call a no-op.
func (s *CartService) Merge(ctx context.Context, userID, mergeID string, lines []domain.MergeLine) (domain.MergeResult, error) {
	res := domain.MergeResult{Merged: []domain.CartLine{}, Skipped: []domain.SkippedLine{}}
	var cartID string
	err := repos.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t := s.bind(tx)
		id, err := t.cartFor(ctx, userID)
		if err != nil {
			return err
		}
		cartID = id
		if mergeID != "" {
			seen, err := t.carts.MergeApplied(ctx, cartID, mergeID)
			if err != nil {
				return err
			}
			if seen {
				res.Replayed = true
				return nil
			}
		}
		for _, ml := range lines {
			in := AddItem{ProductID: ml.ProductID, VariantID: ml.VariantID, Quantity: ml.Quantity}
			if err := checkAdd(in); err != nil {
				res.Skipped = append(res.Skipped, domain.SkippedLine{MergeLine: ml, Reason: err.Error()})
				continue
			}
			line, err := t.addLine(ctx, cartID, in)
			if skip, ok := skipReason(ml, err); ok {
				res.Skipped = append(res.Skipped, skip)
				continue
			}
			if err != nil {
				return err
			}
			res.Merged = append(res.Merged, line)
		}
		if mergeID != "" {
			return t.carts.RecordMerge(ctx, mergeID, cartID)
		}
		return nil
	})
	if err != nil {
		return domain.MergeResult{}, err
	}
	cur, err := s.Carts.Lines(ctx, cartID)
	if err != nil {
		return domain.MergeResult{}, err
	}
	res.Cart = buildCart(cartID, userID, cur)
	return res, nil
}

// skipReason turns a per-line validation failure into a skipped entry.
func skipReason(ml domain.MergeLine, err error) (domain.SkippedLine, bool) {
	if err == nil {
		return domain.SkippedLine{}, false
	}
	var se *StockError
	switch {
	case errors.As(err, &se):
		avail := se.Available
		return domain.SkippedLine{MergeLine: ml, Reason: se.Error(), Available: &avail}, true
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrVariantNotFound):
		return domain.SkippedLine{MergeLine: ml, Reason: err.Error()}, true
	}
	return domain.SkippedLine{}, false
}

func buildCart(cartID, userID string, lines []domain.CartLine) domain.Cart {
	c := domain.Cart{ID: cartID, UserID: userID, Items: lines, Total: decimal.Zero}
	if c.Items == nil {
		c.Items = []domain.CartLine{}
	}
	for _, l := range c.Items {
		c.Total = c.Total.Add(l.Total)
		c.ItemCount += l.Quantity
	}
	c.FormattedTotal = FormatMoney(c.Total)
	return c
}
