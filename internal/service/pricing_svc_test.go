package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"shopify_sync_v1_202609/internal/model"
)

func nd(f float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
}

// ==================== 售价计算 ====================

func TestSellingPrice(t *testing.T) {
	tests := []struct {
		name   string
		cost   float64
		policy model.PricePolicy
		want   string
	}{
		{"closest 向下取整", 22.43,
			model.PricePolicy{ProfitMargin: 1, Rounding: 0.99, RoundTo: model.RoundToClosest}, "22.99"},
		{"closest 向上取整", 22.60,
			model.PricePolicy{ProfitMargin: 1, Rounding: 0.99, RoundTo: model.RoundToClosest}, "23.99"},
		{"up 总是进位后压尾数", 22.01,
			model.PricePolicy{ProfitMargin: 1, Rounding: 0.99, RoundTo: model.RoundToUp}, "22.99"},
		{"down 总是舍位后压尾数", 22.99,
			model.PricePolicy{ProfitMargin: 1, Rounding: 0.99, RoundTo: model.RoundToDown}, "21.99"},
		{"rounding 关闭仅留两位", 14.95,
			model.PricePolicy{ProfitMargin: 1.5, Rounding: 0, RoundTo: model.RoundToClosest}, "22.43"},
		{"默认利润率", 10,
			model.PricePolicy{ProfitMargin: 1.5, Rounding: 0.99, RoundTo: model.RoundToClosest}, "15.99"},
		{"其他尾数", 10,
			model.PricePolicy{ProfitMargin: 1.5, Rounding: 0.95, RoundTo: model.RoundToUp}, "14.95"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SellingPrice(decimal.NewFromFloat(tt.cost), tt.policy)
			if got.StringFixed(2) != tt.want {
				t.Errorf("SellingPrice(%v, %+v) = %s, want %s", tt.cost, tt.policy, got.StringFixed(2), tt.want)
			}
		})
	}
}

// ==================== 供应商仲裁 ====================

func arbitrationProduct() *model.Product {
	return &model.Product{
		Suppliers: []model.SupplierOffer{
			{SupplierName: "alpha", Price: nd(12.00), StockLevel: 3},
			{SupplierName: "beta", Price: nd(9.50), StockLevel: 10},
			{SupplierName: "gamma", Price: nd(8.00), StockLevel: 0},
			{SupplierName: "delta", Price: decimal.NullDecimal{}, StockLevel: 99},
		},
	}
}

func TestBestOffer_PrefersCheapestInStock(t *testing.T) {
	offer, inStock := BestOffer(arbitrationProduct(), &model.Shop{})
	if offer == nil || offer.SupplierName != "beta" {
		t.Fatalf("offer = %+v, want beta", offer)
	}
	if !inStock {
		t.Error("beta 有货，inStock 应为 true")
	}
}

func TestBestOffer_RespectsExclusions(t *testing.T) {
	shop := &model.Shop{ExcludedSuppliers: model.StringSlice{"Beta"}} // 大小写不敏感

	offer, inStock := BestOffer(arbitrationProduct(), shop)
	if offer == nil || offer.SupplierName != "alpha" {
		t.Fatalf("offer = %+v, want alpha", offer)
	}
	if !inStock {
		t.Error("alpha 有货，inStock 应为 true")
	}
}

func TestBestOffer_OutOfStockFallback(t *testing.T) {
	product := &model.Product{
		Suppliers: []model.SupplierOffer{
			{SupplierName: "alpha", Price: nd(12.00), StockLevel: 0},
			{SupplierName: "gamma", Price: nd(8.00), StockLevel: 0},
		},
	}

	offer, inStock := BestOffer(product, &model.Shop{})
	if offer == nil || offer.SupplierName != "gamma" {
		t.Fatalf("offer = %+v, want gamma", offer)
	}
	if inStock {
		t.Error("全部无货，inStock 应为 false")
	}
}

func TestBestOffer_NoSurvivors(t *testing.T) {
	product := &model.Product{
		Suppliers: []model.SupplierOffer{
			{SupplierName: "delta", Price: decimal.NullDecimal{}, StockLevel: 5},
		},
	}

	if offer, _ := BestOffer(product, &model.Shop{}); offer != nil {
		t.Errorf("无可用报价应返回 nil, got %+v", offer)
	}
}

// ==================== 完整报价 ====================

func TestQuoteForShop(t *testing.T) {
	shop := &model.Shop{ProfitMargin: 2, Rounding: 0.99, RoundTo: model.RoundToClosest}

	quote, ok := QuoteForShop(arbitrationProduct(), shop)
	if !ok {
		t.Fatal("期望得到报价")
	}
	if quote.Supplier != "beta" {
		t.Errorf("Supplier = %s, want beta", quote.Supplier)
	}
	// 9.50 * 2 = 19 -> 19.99
	if quote.SellingPrice.StringFixed(2) != "19.99" {
		t.Errorf("SellingPrice = %s, want 19.99", quote.SellingPrice.StringFixed(2))
	}
	if quote.StockLevel != 10 || !quote.FromStock {
		t.Errorf("库存信息错误: %+v", quote)
	}
}

func TestQuoteForShop_OutOfStockListsAtZero(t *testing.T) {
	product := &model.Product{
		Suppliers: []model.SupplierOffer{
			{SupplierName: "gamma", Price: nd(8.00), StockLevel: 0},
		},
	}

	quote, ok := QuoteForShop(product, &model.Shop{ProfitMargin: 1.5, Rounding: 0.99})
	if !ok {
		t.Fatal("无货兜底仍应给出报价")
	}
	if quote.FromStock {
		t.Error("FromStock 应为 false")
	}
	if quote.StockLevel != 0 {
		t.Errorf("无货兜底库存应为 0, got %d", quote.StockLevel)
	}
}
