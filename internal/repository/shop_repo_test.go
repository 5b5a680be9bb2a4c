package repository

import (
	"context"
	"errors"
	"testing"

	"shopify_sync_v1_202609/internal/model"
)

func TestShopRepo_ListReady(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewShopRepository(db)
	ctx := context.Background()

	shops := []*model.Shop{
		{Domain: "ready.myshopify.com", AccessToken: "t", Scopes: model.StringSlice{model.ListingScope}},
		{Domain: "no-token.myshopify.com", Scopes: model.StringSlice{model.ListingScope}},
		{Domain: "no-scope.myshopify.com", AccessToken: "t", Scopes: model.StringSlice{"read_orders"}},
	}
	for _, s := range shops {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("创建店铺失败: %v", err)
		}
	}

	ready, err := repo.ListReady(ctx)
	if err != nil {
		t.Fatalf("ListReady() error = %v", err)
	}
	if len(ready) != 1 || ready[0].Domain != "ready.myshopify.com" {
		t.Errorf("就绪店铺 = %d 个, want 1", len(ready))
	}
}

func TestShopRepo_ListByDomains(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewShopRepository(db)
	ctx := context.Background()

	repo.Create(ctx, &model.Shop{Domain: "a.myshopify.com"})
	repo.Create(ctx, &model.Shop{Domain: "b.myshopify.com"})

	got, err := repo.ListByDomains(ctx, []string{"b.myshopify.com"})
	if err != nil {
		t.Fatalf("ListByDomains() error = %v", err)
	}
	if len(got) != 1 || got[0].Domain != "b.myshopify.com" {
		t.Errorf("按域名过滤结果 = %d 个", len(got))
	}

	// 空过滤等同全量
	all, err := repo.ListByDomains(ctx, nil)
	if err != nil {
		t.Fatalf("ListByDomains(nil) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("全量结果 = %d 个, want 2", len(all))
	}
}

func TestShopRepo_UpdateSettings(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewShopRepository(db)
	ctx := context.Background()

	shop := &model.Shop{Domain: "a.myshopify.com", ProfitMargin: 1.5}
	repo.Create(ctx, shop)

	err := repo.UpdateSettings(ctx, "a.myshopify.com", map[string]interface{}{
		"profit_margin": 2.0,
		"round_to":      model.RoundToUp,
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	got, _ := repo.GetByDomain(ctx, "a.myshopify.com")
	if got.ProfitMargin != 2.0 || got.RoundTo != model.RoundToUp {
		t.Errorf("设置未生效: margin=%v roundTo=%s", got.ProfitMargin, got.RoundTo)
	}

	// 不存在的店铺
	err = repo.UpdateSettings(ctx, "ghost.myshopify.com", map[string]interface{}{"profit_margin": 2.0})
	if !errors.Is(err, ErrShopNotFound) {
		t.Errorf("err = %v, want ErrShopNotFound", err)
	}
}

func TestShopRepo_GetByDomainNotFound(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewShopRepository(db)

	_, err := repo.GetByDomain(context.Background(), "ghost.myshopify.com")
	if !errors.Is(err, ErrShopNotFound) {
		t.Errorf("err = %v, want ErrShopNotFound", err)
	}
}
