package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/judithshaven/storefront/internal/models"
)

var (
	ErrCouponExpired = errors.New("coupon expired")
	ErrCouponUsed    = errors.New("coupon already used")
)

type Rates struct {
	TaxRate           float64
	ShippingFlatRate  float64
	FreeShippingAbove float64
}

type Line struct {
	Price    float64
	Quantity uint
}

type Quote struct {
	ItemsPrice    float64 `json:"items_price"`
	ShippingPrice float64 `json:"shipping_price"`
	TaxPrice      float64 `json:"tax_price"`
	Discount      float64 `json:"discount"`
	TotalPrice    float64 `json:"total_price"`
}

// EffectivePrice applies the product's own percent discount to its list price.
func EffectivePrice(p *models.Product) float64 {
	price := decimal.NewFromFloat(p.Price)
	if p.Discount > 0 {
		factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(p.Discount).Div(decimal.NewFromInt(100)))
		price = price.Mul(factor)
	}
	f, _ := price.Round(2).Float64()
	return f
}

// ValidateCoupon checks expiry and single-use without touching the request's
// order context.
func ValidateCoupon(c *models.Coupon, now time.Time) error {
	if c.IsUsed {
		return ErrCouponUsed
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrCouponExpired
	}
	return nil
}

func couponDiscount(c *models.Coupon, items decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch c.Type {
	case models.CouponPercent:
		d = items.Mul(decimal.NewFromFloat(c.Value)).Div(decimal.NewFromInt(100))
	case models.CouponFixed:
		d = decimal.NewFromFloat(c.Value)
	default:
		return decimal.Zero
	}
	if d.GreaterThan(items) {
		d = items
	}
	return d
}

// Compute derives all order totals in one place so the persisted invariant
// Total = Items + Shipping + Tax - Discount always holds. All arithmetic is
// decimal; floats appear only at the boundary, rounded to cents.
func Compute(lines []Line, coupon *models.Coupon, r Rates) Quote {
	items := decimal.Zero
	for _, l := range lines {
		lineTotal := decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
		items = items.Add(lineTotal)
	}
	items = items.Round(2)

	shipping := decimal.NewFromFloat(r.ShippingFlatRate)
	if items.IsZero() || items.GreaterThanOrEqual(decimal.NewFromFloat(r.FreeShippingAbove)) {
		shipping = decimal.Zero
	}

	tax := items.Mul(decimal.NewFromFloat(r.TaxRate)).Round(2)
	discount := couponDiscount(coupon, items).Round(2)
	total := items.Add(shipping).Add(tax).Sub(discount).Round(2)

	itemsF, _ := items.Float64()
	shippingF, _ := shipping.Float64()
	taxF, _ := tax.Float64()
	discountF, _ := discount.Float64()
	totalF, _ := total.Float64()

	return Quote{
		ItemsPrice:    itemsF,
		ShippingPrice: shippingF,
		TaxPrice:      taxF,
		Discount:      discountF,
		TotalPrice:    totalF,
	}
}
