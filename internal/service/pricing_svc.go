package service

import (
	"github.com/shopspring/decimal"

	"shopify_sync_v1_202609/internal/model"
)

// ==================== 供应商仲裁与定价 ====================
// 本文件全部为纯函数：输入商品报价与店铺策略，输出选中的供应商与售价。
// "无可用供应商"是高频的正常业务结果，以 (nil/false) 返回，不作为错误。

var decimalOne = decimal.NewFromInt(1)

// PriceQuote 一次仲裁+定价的完整结果
type PriceQuote struct {
	Supplier     string
	Cost         decimal.Decimal
	StockLevel   int
	SellingPrice decimal.Decimal
	SKU          string
	MarginUsed   float64
	RoundingUsed float64
	RoundTo      string
	FromStock    bool // false 表示走了无货兜底（0 库存上架）
}

// BestOffer 最优供应商选择
// 过滤排除名单与无效报价后，优先取有货中的最低价；
// 全部无货时回落到无货最低价（0 库存上架优于不上架）
// 返回 nil 表示没有任何报价存活
func BestOffer(product *model.Product, shop *model.Shop) (offer *model.SupplierOffer, inStock bool) {
	var bestInStock, bestOutOfStock *model.SupplierOffer

	for i := range product.Suppliers {
		candidate := &product.Suppliers[i]
		if shop.IsSupplierExcluded(candidate.SupplierName) {
			continue
		}
		if !candidate.HasUsablePrice() {
			continue
		}

		if candidate.StockLevel > 0 {
			if bestInStock == nil || candidate.Price.Decimal.LessThan(bestInStock.Price.Decimal) {
				bestInStock = candidate
			}
		} else {
			if bestOutOfStock == nil || candidate.Price.Decimal.LessThan(bestOutOfStock.Price.Decimal) {
				bestOutOfStock = candidate
			}
		}
	}

	if bestInStock != nil {
		return bestInStock, true
	}
	return bestOutOfStock, false
}

// SellingPrice 按店铺策略计算售价
// base = 成本 * 利润率；rounding 为 0 时仅保留两位小数，
// 否则按 round_to 把整数部分取整后压到固定尾数：
//
//	up      -> ceil(base)  + rounding - 1
//	down    -> floor(base) + rounding - 1
//	closest -> round(base) + rounding
//
// 例：base 22.43、rounding 0.99、closest => 22.99
func SellingPrice(cost decimal.Decimal, policy model.PricePolicy) decimal.Decimal {
	base := cost.Mul(decimal.NewFromFloat(policy.ProfitMargin))

	if policy.Rounding == 0 {
		return base.Round(2)
	}

	rounding := decimal.NewFromFloat(policy.Rounding)

	var price decimal.Decimal
	switch policy.RoundTo {
	case model.RoundToUp:
		price = base.Ceil().Add(rounding).Sub(decimalOne)
	case model.RoundToDown:
		price = base.Floor().Add(rounding).Sub(decimalOne)
	default: // closest
		price = base.Round(0).Add(rounding)
	}

	return price.Round(2)
}

// QuoteForShop 对单个 (商品, 店铺) 执行完整仲裁+定价
// 第二返回值为 false 表示无可用供应商（正常业务结果，跳过即可）
func QuoteForShop(product *model.Product, shop *model.Shop) (*PriceQuote, bool) {
	offer, inStock := BestOffer(product, shop)
	if offer == nil {
		return nil, false
	}

	policy := shop.PricePolicy()
	quote := &PriceQuote{
		Supplier:     offer.SupplierName,
		Cost:         offer.Price.Decimal,
		StockLevel:   offer.StockLevel,
		SellingPrice: SellingPrice(offer.Price.Decimal, policy),
		SKU:          offer.SKU,
		MarginUsed:   policy.ProfitMargin,
		RoundingUsed: policy.Rounding,
		RoundTo:      policy.RoundTo,
		FromStock:    inStock,
	}
	if !inStock {
		quote.StockLevel = 0
	}
	return quote, true
}
