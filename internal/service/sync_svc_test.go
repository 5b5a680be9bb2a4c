package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/internal/repository"
	"shopify_sync_v1_202609/pkg/shopify"
)

// ==================== Mock 网关 ====================

// mockGateway 按需注入行为的 Shopify 网关 mock
// 未注入的方法返回零值成功
type mockGateway struct {
	createProductFn func(payload *shopify.ProductPayload) (*shopify.ProductResult, error)
	updateVariantFn func(variantID int64, price, sku string) error
	setInventoryFn  func(locationID, inventoryItemID int64, quantity int) error

	deletedProductIDs []int64
	collectionsAdded  int
	ensureCalls       int
}

func (m *mockGateway) CreateProduct(ctx context.Context, creds shopify.Credentials, payload *shopify.ProductPayload) (*shopify.ProductResult, error) {
	if m.createProductFn != nil {
		return m.createProductFn(payload)
	}
	return &shopify.ProductResult{ProductID: 1001, VariantID: 2001, InventoryItemID: 3001, Handle: "h"}, nil
}

func (m *mockGateway) UpdateVariant(ctx context.Context, creds shopify.Credentials, variantID int64, price, sku string) error {
	if m.updateVariantFn != nil {
		return m.updateVariantFn(variantID, price, sku)
	}
	return nil
}

func (m *mockGateway) SetInventory(ctx context.Context, creds shopify.Credentials, locationID, inventoryItemID int64, quantity int) error {
	if m.setInventoryFn != nil {
		return m.setInventoryFn(locationID, inventoryItemID, quantity)
	}
	return nil
}

func (m *mockGateway) DeleteProduct(ctx context.Context, creds shopify.Credentials, productID int64) error {
	m.deletedProductIDs = append(m.deletedProductIDs, productID)
	return nil
}

func (m *mockGateway) GetVariantInventoryItem(ctx context.Context, creds shopify.Credentials, variantID int64) (int64, error) {
	return 3001, nil
}

func (m *mockGateway) GetPrimaryLocation(ctx context.Context, creds shopify.Credentials) (int64, error) {
	return 77, nil
}

func (m *mockGateway) EnsureCollection(ctx context.Context, creds shopify.Credentials, title string) (int64, error) {
	m.ensureCalls++
	return 500, nil
}

func (m *mockGateway) AddToCollection(ctx context.Context, creds shopify.Credentials, productID, collectionID int64) error {
	m.collectionsAdded++
	return nil
}

// ==================== 测试辅助 ====================

func readyShop() *model.Shop {
	return &model.Shop{
		Domain:       "a.myshopify.com",
		AccessToken:  "token",
		Scopes:       model.StringSlice{model.ListingScope},
		ProfitMargin: 1.5,
		Rounding:     0.99,
		RoundTo:      model.RoundToClosest,
	}
}

func setupSyncTest(t *testing.T, gw *mockGateway) (*SyncService, *ShopRuntime, *gorm.DB) {
	db := setupServiceTestDB(t)
	listingSvc := NewListingService(repository.NewListingRepository(db))
	svc := NewSyncService(gw, listingSvc)

	rt, err := svc.PrepareShop(context.Background(), readyShop())
	if err != nil {
		t.Fatalf("PrepareShop() error = %v", err)
	}
	return svc, rt, db
}

func syncTestProduct(t *testing.T, db *gorm.DB) *model.Product {
	product := eligibleProduct()
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("创建测试商品失败: %v", err)
	}
	return product
}

// ==================== PrepareShop ====================

func TestSyncService_PrepareShop_NotReady(t *testing.T) {
	svc := NewSyncService(&mockGateway{}, nil)

	shop := readyShop()
	shop.AccessToken = ""

	_, err := svc.PrepareShop(context.Background(), shop)
	if !errors.Is(err, ErrShopNotReady) {
		t.Errorf("err = %v, want ErrShopNotReady", err)
	}

	shop = readyShop()
	shop.Scopes = model.StringSlice{"read_orders"}
	_, err = svc.PrepareShop(context.Background(), shop)
	if !errors.Is(err, ErrShopNotReady) {
		t.Errorf("缺少 write_products 权限, err = %v, want ErrShopNotReady", err)
	}
}

// ==================== 创建流程 ====================

func TestSyncService_CreateOnShop_Success(t *testing.T) {
	gw := &mockGateway{}
	svc, rt, db := setupSyncTest(t, gw)
	product := syncTestProduct(t, db)

	outcome, err := svc.CreateOnShop(context.Background(), rt, product)
	if err != nil {
		t.Fatalf("CreateOnShop() error = %v", err)
	}
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", outcome)
	}

	listing := product.FindListing("a.myshopify.com")
	if listing == nil {
		t.Fatal("创建成功后应有 listing")
	}
	if listing.Status != model.ListingStatusCreated {
		t.Errorf("Status = %s, want created", listing.Status)
	}
	// 8.00 * 1.5 = 12 -> 12.99
	if listing.SellingPrice.Decimal.StringFixed(2) != "12.99" {
		t.Errorf("SellingPrice = %s, want 12.99", listing.SellingPrice.Decimal.StringFixed(2))
	}
	if listing.ShopifyProductID == nil || *listing.ShopifyProductID != 1001 {
		t.Errorf("ShopifyProductID = %v", listing.ShopifyProductID)
	}
	if gw.collectionsAdded != 1 {
		t.Errorf("应按分类归档 1 次, got %d", gw.collectionsAdded)
	}
}

func TestSyncService_CreateOnShop_CollectionCachePerRun(t *testing.T) {
	gw := &mockGateway{}
	svc, rt, db := setupSyncTest(t, gw)

	// 同店铺两个同分类商品，EnsureCollection 只应查一次
	p1 := syncTestProduct(t, db)
	p2 := eligibleProduct()
	p2.Barcode = "654321"
	if err := db.Create(p2).Error; err != nil {
		t.Fatalf("创建测试商品失败: %v", err)
	}

	if _, err := svc.CreateOnShop(context.Background(), rt, p1); err != nil {
		t.Fatalf("CreateOnShop(p1) error = %v", err)
	}
	if _, err := svc.CreateOnShop(context.Background(), rt, p2); err != nil {
		t.Fatalf("CreateOnShop(p2) error = %v", err)
	}

	if gw.ensureCalls != 1 {
		t.Errorf("EnsureCollection 调用 %d 次, want 1（命中缓存）", gw.ensureCalls)
	}
	if gw.collectionsAdded != 2 {
		t.Errorf("AddToCollection 调用 %d 次, want 2", gw.collectionsAdded)
	}
}

func TestSyncService_CreateOnShop_RemoteFailure(t *testing.T) {
	gw := &mockGateway{
		createProductFn: func(*shopify.ProductPayload) (*shopify.ProductResult, error) {
			return nil, errors.New("502 bad gateway")
		},
	}
	svc, rt, db := setupSyncTest(t, gw)
	product := syncTestProduct(t, db)

	outcome, err := svc.CreateOnShop(context.Background(), rt, product)
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
	if err == nil {
		t.Fatal("远端失败应返回错误")
	}

	listing := product.FindListing("a.myshopify.com")
	if listing.Status != model.ListingStatusCreateError {
		t.Errorf("Status = %s, want create_error", listing.Status)
	}
	if listing.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", listing.ErrorCount)
	}
}

func TestSyncService_CreateOnShop_CleansUpPartialCreate(t *testing.T) {
	gw := &mockGateway{
		setInventoryFn: func(int64, int64, int) error {
			return errors.New("inventory api down")
		},
	}
	svc, rt, db := setupSyncTest(t, gw)
	product := syncTestProduct(t, db)

	outcome, _ := svc.CreateOnShop(context.Background(), rt, product)
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}

	// 部分创建成功后失败：先删远端残留再记错
	if len(gw.deletedProductIDs) != 1 || gw.deletedProductIDs[0] != 1001 {
		t.Errorf("应清理远端残留商品, deleted = %v", gw.deletedProductIDs)
	}

	listing := product.FindListing("a.myshopify.com")
	if listing.Status != model.ListingStatusCreateError {
		t.Errorf("Status = %s, want create_error", listing.Status)
	}
}

func TestSyncService_CreateOnShop_SkipsIneligible(t *testing.T) {
	gw := &mockGateway{}
	svc, rt, db := setupSyncTest(t, gw)

	product := eligibleProduct()
	product.ImageStatus = model.EnrichStatusPending
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("创建测试商品失败: %v", err)
	}

	outcome, err := svc.CreateOnShop(context.Background(), rt, product)
	if err != nil {
		t.Fatalf("CreateOnShop() error = %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}
	if product.FindListing("a.myshopify.com") != nil {
		t.Error("不合格商品不应产生 listing 写入")
	}
}

// ==================== 更新流程 ====================

// createdProduct 先走一遍成功创建，得到 created listing
func createdProduct(t *testing.T, svc *SyncService, rt *ShopRuntime, db *gorm.DB) *model.Product {
	product := syncTestProduct(t, db)
	if _, err := svc.CreateOnShop(context.Background(), rt, product); err != nil {
		t.Fatalf("前置创建失败: %v", err)
	}
	return product
}

func TestSyncService_UpdateOnShop_NoChangeSkips(t *testing.T) {
	gw := &mockGateway{}
	svc, rt, db := setupSyncTest(t, gw)
	product := createdProduct(t, svc, rt, db)

	variantCalls := 0
	gw.updateVariantFn = func(int64, string, string) error {
		variantCalls++
		return nil
	}

	outcome, err := svc.UpdateOnShop(context.Background(), rt, product)
	if err != nil {
		t.Fatalf("UpdateOnShop() error = %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("定价无变化, outcome = %v, want skipped", outcome)
	}
	if variantCalls != 0 {
		t.Errorf("无变化不应调用远端, calls = %d", variantCalls)
	}

	listing := product.FindListing("a.myshopify.com")
	if listing.Status != model.ListingStatusUpdated {
		t.Errorf("无变化应收敛为 updated, got %s", listing.Status)
	}
}

func TestSyncService_UpdateOnShop_AppliesNewPrice(t *testing.T) {
	gw := &mockGateway{}
	svc, rt, db := setupSyncTest(t, gw)
	product := createdProduct(t, svc, rt, db)

	// 供应商提价
	product.Suppliers[0].Price = nd(10.00)

	var gotPrice string
	gw.updateVariantFn = func(variantID int64, price, sku string) error {
		gotPrice = price
		return nil
	}

	outcome, err := svc.UpdateOnShop(context.Background(), rt, product)
	if err != nil {
		t.Fatalf("UpdateOnShop() error = %v", err)
	}
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", outcome)
	}
	// 10 * 1.5 = 15 -> 15.99
	if gotPrice != "15.99" {
		t.Errorf("远端价格 = %s, want 15.99", gotPrice)
	}

	listing := product.FindListing("a.myshopify.com")
	if listing.Status != model.ListingStatusUpdated {
		t.Errorf("Status = %s, want updated", listing.Status)
	}
	if listing.SellingPrice.Decimal.StringFixed(2) != "15.99" {
		t.Errorf("落库价格 = %s", listing.SellingPrice.Decimal.StringFixed(2))
	}
	// 远端标识在更新链路全程保留
	if listing.ShopifyProductID == nil || listing.ShopifyVariantID == nil {
		t.Error("更新后远端标识不应丢失")
	}
}

func TestSyncService_UpdateOnShop_MissingIdentity(t *testing.T) {
	gw := &mockGateway{}
	svc, rt, db := setupSyncTest(t, gw)
	product := syncTestProduct(t, db)

	// 有 listing 但缺远端标识（历史脏数据）
	listingSvc := NewListingService(repository.NewListingRepository(db))
	if _, err := listingSvc.Upsert(context.Background(), product, rt.Shop.Domain, &model.ListingPatch{
		Status: model.ListingStatusUpdatePending,
	}); err != nil {
		t.Fatalf("前置写入失败: %v", err)
	}

	outcome, err := svc.UpdateOnShop(context.Background(), rt, product)
	if outcome != OutcomeFailed || err == nil {
		t.Fatalf("缺失标识应记错, outcome = %v err = %v", outcome, err)
	}

	listing := product.FindListing(rt.Shop.Domain)
	if listing.Status != model.ListingStatusUpdateError {
		t.Errorf("Status = %s, want update_error", listing.Status)
	}
}
