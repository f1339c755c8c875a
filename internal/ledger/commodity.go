package ledger

import (
	"context"

	"github.com/kilupskalvis/ledgerstore/internal/models"
)

// Commoditizer is implemented by Commodity and every type derived from it
type Commoditizer interface {
	models.Object
	AsCommodity() *Commodity
}

// Commodity is anything an amount can be denominated in
type Commodity struct {
	object
	name models.Value
}

func (t *Types) initCommodity(c *Commodity, b *models.Bootstrap) {
	c.object = newObject(t, b)
	c.name = arg(b, "name")
}

func (t *Types) buildCommodity(b *models.Bootstrap) (models.Object, error) {
	c := &Commodity{}
	t.initCommodity(c, b)
	c.outer = c
	return c, nil
}

func (c *Commodity) AsCommodity() *Commodity { return c }

func (c *Commodity) Name() string { return c.name.AsText() }

func (c *Commodity) SetName(ctx context.Context, name string) error {
	return update(ctx, c.self(), func() { c.name = models.Text(name) })
}

// Currency is a commodity with a code and a number of minor-unit decimals
type Currency struct {
	Commodity
	code     models.Value
	decimals models.Value
}

func (t *Types) buildCurrency(b *models.Bootstrap) (models.Object, error) {
	c := &Currency{}
	t.initCommodity(&c.Commodity, b)
	c.code = arg(b, "code")
	c.decimals = intArg(b, "decimals")
	c.outer = c
	return c, nil
}

func (c *Currency) Code() string { return c.code.AsText() }

func (c *Currency) Decimals() int { return int(c.decimals.AsInt()) }

func (c *Currency) SetCode(ctx context.Context, code string) error {
	return update(ctx, c, func() { c.code = models.Text(code) })
}

func (c *Currency) SetDecimals(ctx context.Context, decimals int) error {
	return update(ctx, c, func() { c.decimals = models.Int(int64(decimals)) })
}
