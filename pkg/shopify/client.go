package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DefaultAPIVersion 默认 Admin API 版本
const DefaultAPIVersion = "2025-01"

// Shopify REST Admin API 限速为 2 req/s（突发 40），
// 这里按店铺维度各持一个限速器，突发额度收紧留余量
const (
	requestsPerSecond = 2
	requestBurst      = 4
)

// Client Shopify Admin REST 客户端
// 无状态：店铺凭证逐次调用传入，内部仅缓存各域名的限速器
type Client struct {
	http       *resty.Client
	apiVersion string

	limiters sync.Map // domain -> *rate.Limiter
}

// NewClient 创建客户端
func NewClient(apiVersion string) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	httpClient := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// 429 交给 resty 重试，其余错误原样抛给调用方
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		http:       httpClient,
		apiVersion: apiVersion,
	}
}

func (c *Client) limiter(domain string) *rate.Limiter {
	if l, ok := c.limiters.Load(domain); ok {
		return l.(*rate.Limiter)
	}
	l, _ := c.limiters.LoadOrStore(domain, rate.NewLimiter(requestsPerSecond, requestBurst))
	return l.(*rate.Limiter)
}

func (c *Client) url(creds Credentials, path string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s", creds.Domain, c.apiVersion, path)
}

func (c *Client) request(ctx context.Context, creds Credentials) (*resty.Request, error) {
	if err := c.limiter(creds.Domain).Wait(ctx); err != nil {
		return nil, err
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", creds.AccessToken).
		SetHeader("Content-Type", "application/json"), nil
}

func apiError(op string, resp *resty.Response) error {
	return fmt.Errorf("shopify %s failed [%d]: %s", op, resp.StatusCode(), resp.String())
}

// ==================== 商品 ====================

// CreateProduct 创建商品（含图片与单变体），返回远端标识
func (c *Client) CreateProduct(ctx context.Context, creds Credentials, payload *ProductPayload) (*ProductResult, error) {
	req, err := c.request(ctx, creds)
	if err != nil {
		return nil, err
	}

	body := productReq{Product: productBody{
		Title:                    payload.Title,
		BodyHTML:                 payload.BodyHTML,
		Vendor:                   payload.Vendor,
		Tags:                     strings.Join(payload.Tags, ", "),
		MetafieldsGlobalTitleTag: payload.SEOTitle,
		MetafieldsGlobalDescTag:  payload.SEODescription,
		Variants: []variantBody{{
			Price:               payload.Price,
			SKU:                 payload.SKU,
			Barcode:             payload.Barcode,
			InventoryManagement: "shopify",
		}},
	}}
	for _, u := range payload.ImageURLs {
		body.Product.Images = append(body.Product.Images, imageBody{Src: u})
	}

	var out productResp
	resp, err := req.SetBody(body).SetResult(&out).Post(c.url(creds, "products.json"))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return nil, apiError("create product", resp)
	}
	if len(out.Product.Variants) == 0 {
		return nil, fmt.Errorf("shopify create product: response has no variants")
	}

	return &ProductResult{
		ProductID:       out.Product.ID,
		VariantID:       out.Product.Variants[0].ID,
		InventoryItemID: out.Product.Variants[0].InventoryItemID,
		Handle:          out.Product.Handle,
	}, nil
}

// UpdateVariant 更新变体价格/SKU
func (c *Client) UpdateVariant(ctx context.Context, creds Credentials, variantID int64, price, sku string) error {
	req, err := c.request(ctx, creds)
	if err != nil {
		return err
	}

	body := variantReq{Variant: variantBody{ID: variantID, Price: price, SKU: sku}}
	resp, err := req.SetBody(body).Put(c.url(creds, fmt.Sprintf("variants/%d.json", variantID)))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return apiError("update variant", resp)
	}
	return nil
}

// SetInventory 设置库存水位
func (c *Client) SetInventory(ctx context.Context, creds Credentials, locationID, inventoryItemID int64, quantity int) error {
	req, err := c.request(ctx, creds)
	if err != nil {
		return err
	}

	body := inventorySetReq{
		LocationID:      locationID,
		InventoryItemID: inventoryItemID,
		Available:       quantity,
	}
	resp, err := req.SetBody(body).Post(c.url(creds, "inventory_levels/set.json"))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return apiError("set inventory", resp)
	}
	return nil
}

// DeleteProduct 删除商品（部分创建失败后的清理）
func (c *Client) DeleteProduct(ctx context.Context, creds Credentials, productID int64) error {
	req, err := c.request(ctx, creds)
	if err != nil {
		return err
	}

	resp, err := req.Delete(c.url(creds, fmt.Sprintf("products/%d.json", productID)))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNotFound {
		return apiError("delete product", resp)
	}
	return nil
}

// GetVariantInventoryItem 查询变体的 inventory_item_id（更新库存时需要）
func (c *Client) GetVariantInventoryItem(ctx context.Context, creds Credentials, variantID int64) (int64, error) {
	req, err := c.request(ctx, creds)
	if err != nil {
		return 0, err
	}

	var out variantReq
	resp, err := req.SetResult(&out).Get(c.url(creds, fmt.Sprintf("variants/%d.json", variantID)))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, apiError("get variant", resp)
	}
	return out.Variant.InventoryItemID, nil
}

// ==================== 店铺资源 ====================

// GetPrimaryLocation 取第一个激活的库存地点
func (c *Client) GetPrimaryLocation(ctx context.Context, creds Credentials) (int64, error) {
	req, err := c.request(ctx, creds)
	if err != nil {
		return 0, err
	}

	var out locationsResp
	resp, err := req.SetResult(&out).Get(c.url(creds, "locations.json"))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, apiError("get locations", resp)
	}

	for _, loc := range out.Locations {
		if loc.Active {
			return loc.ID, nil
		}
	}
	return 0, fmt.Errorf("shopify: shop %s has no active location", creds.Domain)
}

// EnsureCollection 按标题查找自定义集合，不存在则创建
func (c *Client) EnsureCollection(ctx context.Context, creds Credentials, title string) (int64, error) {
	req, err := c.request(ctx, creds)
	if err != nil {
		return 0, err
	}

	var found customCollectionsResp
	resp, err := req.SetQueryParam("title", title).
		SetResult(&found).
		Get(c.url(creds, "custom_collections.json"))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, apiError("find collection", resp)
	}
	if len(found.CustomCollections) > 0 {
		return found.CustomCollections[0].ID, nil
	}

	req, err = c.request(ctx, creds)
	if err != nil {
		return 0, err
	}
	var body customCollectionReq
	body.CustomCollection.Title = title
	var created customCollectionResp
	resp, err = req.SetBody(body).SetResult(&created).Post(c.url(creds, "custom_collections.json"))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return 0, apiError("create collection", resp)
	}
	return created.CustomCollection.ID, nil
}

// AddToCollection 把商品挂入集合
func (c *Client) AddToCollection(ctx context.Context, creds Credentials, productID, collectionID int64) error {
	req, err := c.request(ctx, creds)
	if err != nil {
		return err
	}

	var body collectReq
	body.Collect.ProductID = productID
	body.Collect.CollectionID = collectionID
	resp, err := req.SetBody(body).Post(c.url(creds, "collects.json"))
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return apiError("add to collection", resp)
	}
	return nil
}
