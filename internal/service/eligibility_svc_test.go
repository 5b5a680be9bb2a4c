package service

import (
	"testing"

	"shopify_sync_v1_202609/internal/model"
)

func eligibleProduct() *model.Product {
	return &model.Product{
		Barcode:      "123456",
		LookupStatus: model.EnrichStatusSuccess,
		AIStatus:     model.EnrichStatusSuccess,
		ImageStatus:  model.EnrichStatusSuccess,
		Title:        "Widget",
		Description:  "A widget",
		Category:     "Widgets",
		Brand:        "Acme",
		Suppliers: []model.SupplierOffer{
			{SupplierName: "alpha", Price: nd(8.00), StockLevel: 3},
		},
	}
}

func TestProductEligible(t *testing.T) {
	ok, reason := ProductEligible(eligibleProduct(), &model.Shop{})
	if !ok {
		t.Fatalf("期望合格, reason = %s", reason)
	}
}

func TestProductEligible_EnrichmentIncomplete(t *testing.T) {
	product := eligibleProduct()
	product.AIStatus = model.EnrichStatusFailed

	ok, reason := ProductEligible(product, &model.Shop{})
	if ok || reason != "enrichment_incomplete" {
		t.Errorf("got (%v, %s), want (false, enrichment_incomplete)", ok, reason)
	}
}

func TestProductEligible_BrandExcluded(t *testing.T) {
	shop := &model.Shop{ExcludedBrands: model.StringSlice{"acme"}} // 大小写不敏感

	ok, reason := ProductEligible(eligibleProduct(), shop)
	if ok || reason != "brand_excluded" {
		t.Errorf("got (%v, %s), want (false, brand_excluded)", ok, reason)
	}
}

func TestProductEligible_ManufacturerFallbackExcluded(t *testing.T) {
	product := eligibleProduct()
	product.Brand = ""
	product.Manufacturer = "Acme Industries"
	shop := &model.Shop{ExcludedBrands: model.StringSlice{"Acme Industries"}}

	ok, reason := ProductEligible(product, shop)
	if ok || reason != "brand_excluded" {
		t.Errorf("品牌回落到制造商后仍应被排除, got (%v, %s)", ok, reason)
	}
}

func TestProductEligible_NoUsableSupplier(t *testing.T) {
	product := eligibleProduct()
	shop := &model.Shop{ExcludedSuppliers: model.StringSlice{"alpha"}}

	ok, reason := ProductEligible(product, shop)
	if ok || reason != "no_usable_supplier" {
		t.Errorf("got (%v, %s), want (false, no_usable_supplier)", ok, reason)
	}
}
