package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"shopify_sync_v1_202609/internal/model"
)

func TestProductRepo_GetByBarcode(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &model.Product{Barcode: "4006381333931", Title: "Widget"}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByBarcode(ctx, "4006381333931")
	if err != nil {
		t.Fatalf("GetByBarcode() error = %v", err)
	}
	if got.Title != "Widget" {
		t.Errorf("Title = %s", got.Title)
	}

	_, err = repo.GetByBarcode(ctx, "0000000000000")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("err = %v, want ErrProductNotFound", err)
	}
}

func TestProductRepo_ListEnriched(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	done := &model.Product{
		Barcode:      "done",
		LookupStatus: model.EnrichStatusSuccess,
		AIStatus:     model.EnrichStatusSuccess,
		ImageStatus:  model.EnrichStatusSuccess,
	}
	partial := &model.Product{
		Barcode:      "partial",
		LookupStatus: model.EnrichStatusSuccess,
		AIStatus:     model.EnrichStatusPending,
		ImageStatus:  model.EnrichStatusSuccess,
	}
	repo.Create(ctx, done)
	repo.Create(ctx, partial)

	got, err := repo.ListEnriched(ctx, 0)
	if err != nil {
		t.Fatalf("ListEnriched() error = %v", err)
	}
	if len(got) != 1 || got[0].Barcode != "done" {
		t.Errorf("补全完成商品 = %d 个, want 1", len(got))
	}
}

func TestProductRepo_UpsertSupplierOffer(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	product := &model.Product{Barcode: "offer-test"}
	repo.Create(ctx, product)

	offer := &model.SupplierOffer{
		ProductID:    product.ID,
		SupplierName: "alpha",
		Price:        decimal.NullDecimal{Decimal: decimal.NewFromFloat(9.99), Valid: true},
		StockLevel:   5,
	}
	if err := repo.UpsertSupplierOffer(ctx, offer); err != nil {
		t.Fatalf("首次 Upsert 失败: %v", err)
	}

	// 同 (商品, 供应商) 再次写入应原地更新
	offer2 := &model.SupplierOffer{
		ProductID:    product.ID,
		SupplierName: "alpha",
		Price:        decimal.NullDecimal{Decimal: decimal.NewFromFloat(8.50), Valid: true},
		StockLevel:   0,
	}
	if err := repo.UpsertSupplierOffer(ctx, offer2); err != nil {
		t.Fatalf("二次 Upsert 失败: %v", err)
	}

	var count int64
	db.Model(&model.SupplierOffer{}).Count(&count)
	if count != 1 {
		t.Errorf("报价数量 = %d, want 1", count)
	}

	got, _ := repo.GetByID(ctx, product.ID)
	if len(got.Suppliers) != 1 {
		t.Fatalf("Suppliers = %d 个", len(got.Suppliers))
	}
	if got.Suppliers[0].Price.Decimal.StringFixed(2) != "8.50" {
		t.Errorf("Price = %s, want 8.50", got.Suppliers[0].Price.Decimal.StringFixed(2))
	}
	if got.Suppliers[0].StockLevel != 0 {
		t.Errorf("StockLevel = %d, want 0", got.Suppliers[0].StockLevel)
	}
}
