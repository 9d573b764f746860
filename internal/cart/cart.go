// Package cart holds the cashier's in-progress sale. Prices are resolved on
// every read so a customer class switch reprices the whole cart.
package cart

import (
	"errors"
	"fmt"
	"math"

	"kasir/internal/posapi"
	"kasir/internal/pricing"
)

var (
	ErrNoLine          = errors.New("cart: product is not in the cart")
	ErrInvalidQuantity = errors.New("cart: quantity must be a finite number not below zero")
)

type Line struct {
	Variant  posapi.Variant
	Quantity float64
}

func (l Line) UnitPrice(class pricing.CustomerClass) float64 {
	return pricing.UnitPrice(l.Variant.PricingLine(l.Quantity), class)
}

func (l Line) Subtotal(class pricing.CustomerClass) float64 {
	return pricing.LineTotal(l.Variant.PricingLine(l.Quantity), class)
}

// Cart is not safe for concurrent use.
type Cart struct {
	lines      []Line
	class      pricing.CustomerClass
	resumingID int
}

func New() *Cart {
	return &Cart{class: pricing.Normal}
}

// Add puts one unit of v in the cart.
func (c *Cart) Add(v posapi.Variant) {
	if i := c.index(v.ID); i >= 0 {
		c.lines[i].Quantity++
		c.lines[i].Variant = v
		return
	}
	c.lines = append(c.lines, Line{Variant: v, Quantity: 1})
}

// Adjust changes a line's quantity by delta and drops the line when nothing
// is left.
func (c *Cart) Adjust(variantID int, delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return ErrInvalidQuantity
	}
	i := c.index(variantID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNoLine, variantID)
	}
	next := c.lines[i].Quantity + delta
	if next <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return nil
	}
	c.lines[i].Quantity = next
	return nil
}

// SetQuantity is a manual edit of a line's quantity. Zero removes the line.
func (c *Cart) SetQuantity(variantID int, qty float64) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		return ErrInvalidQuantity
	}
	i := c.index(variantID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNoLine, variantID)
	}
	return c.Adjust(variantID, qty-c.lines[i].Quantity)
}

func (c *Cart) Remove(variantID int) error {
	i := c.index(variantID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrNoLine, variantID)
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// Clear empties the cart, resets the class to normal and forgets a resumed
// held transaction.
func (c *Cart) Clear() {
	c.lines = nil
	c.class = pricing.Normal
	c.resumingID = 0
}

func (c *Cart) SetCustomerClass(class pricing.CustomerClass) {
	c.class = class
}

func (c *Cart) CustomerClass() pricing.CustomerClass {
	return c.class
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.lines {
		total += l.Subtotal(c.class)
	}
	return total
}

func (c *Cart) DetailItems() []posapi.DetailItem {
	items := make([]posapi.DetailItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, posapi.DetailItem{VariantID: l.Variant.ID, Quantity: l.Quantity})
	}
	return items
}

// ResumingID is the held transaction the cart was rebuilt from, or 0.
func (c *Cart) ResumingID() int {
	return c.resumingID
}

// Resume replaces the cart with the lines of a held transaction.
func (c *Cart) Resume(tx posapi.Transaction) error {
	if tx.Status != "" && tx.Status != posapi.StatusHeld {
		return fmt.Errorf("cart: transaction %s is %s, not held", tx.Number, tx.Status)
	}
	class, err := pricing.ParseCustomerClass(tx.CustomerType)
	if err != nil {
		return err
	}

	lines := make([]Line, 0, len(tx.DetailItems))
	for _, d := range tx.DetailItems {
		if d.Quantity.Float() <= 0 {
			continue
		}
		lines = append(lines, Line{Variant: d.Variant, Quantity: d.Quantity.Float()})
	}
	c.lines = lines
	c.class = class
	c.resumingID = tx.ID
	return nil
}

func (c *Cart) HoldRequest(notes string) posapi.HoldRequest {
	return posapi.HoldRequest{
		DetailItems:  c.DetailItems(),
		CustomerType: c.class.WireValue(),
		Notes:        notes,
	}
}

func (c *Cart) CheckoutRequest(method string, paid, discount float64) posapi.CheckoutRequest {
	return posapi.CheckoutRequest{
		PaymentMethod: method,
		Paid:          paid,
		Discount:      discount,
		DetailItems:   c.DetailItems(),
		CustomerType:  c.class.WireValue(),
	}
}

func (c *Cart) index(variantID int) int {
	for i, l := range c.lines {
		if l.Variant.ID == variantID {
			return i
		}
	}
	return -1
}
