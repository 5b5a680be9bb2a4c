package shopify

// ==================== 请求 DTO ====================

// Credentials 单次调用所需的店铺凭证（只传数据，不持有店铺对象）
type Credentials struct {
	Domain      string // xxx.myshopify.com
	AccessToken string
}

// ProductPayload 创建/更新商品的入参
type ProductPayload struct {
	Title          string
	BodyHTML       string
	Vendor         string
	Tags           []string
	ImageURLs      []string
	SEOTitle       string
	SEODescription string

	// 变体字段（单变体模型）
	Price   string
	Cost    string
	SKU     string
	Barcode string
}

// ProductResult 创建成功后的远端标识
type ProductResult struct {
	ProductID       int64
	VariantID       int64
	InventoryItemID int64
	Handle          string
}

// ==================== 线上 API 结构 ====================

type productReq struct {
	Product productBody `json:"product"`
}

type productBody struct {
	ID                         int64        `json:"id,omitempty"`
	Title                      string       `json:"title,omitempty"`
	BodyHTML                   string       `json:"body_html,omitempty"`
	Vendor                     string       `json:"vendor,omitempty"`
	Tags                       string       `json:"tags,omitempty"`
	Handle                     string       `json:"handle,omitempty"`
	MetafieldsGlobalTitleTag   string       `json:"metafields_global_title_tag,omitempty"`
	MetafieldsGlobalDescTag    string       `json:"metafields_global_description_tag,omitempty"`
	Images                     []imageBody  `json:"images,omitempty"`
	Variants                   []variantBody `json:"variants,omitempty"`
}

type imageBody struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src,omitempty"`
}

type variantBody struct {
	ID                  int64  `json:"id,omitempty"`
	Price               string `json:"price,omitempty"`
	SKU                 string `json:"sku,omitempty"`
	Barcode             string `json:"barcode,omitempty"`
	InventoryItemID     int64  `json:"inventory_item_id,omitempty"`
	InventoryManagement string `json:"inventory_management,omitempty"`
}

type productResp struct {
	Product productBody `json:"product"`
}

type variantReq struct {
	Variant variantBody `json:"variant"`
}

type inventorySetReq struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

type locationsResp struct {
	Locations []struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Active bool   `json:"active"`
	} `json:"locations"`
}

type customCollectionsResp struct {
	CustomCollections []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"custom_collections"`
}

type customCollectionReq struct {
	CustomCollection struct {
		Title    string `json:"title"`
		BodyHTML string `json:"body_html,omitempty"`
	} `json:"custom_collection"`
}

type customCollectionResp struct {
	CustomCollection struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"custom_collection"`
}

type collectReq struct {
	Collect struct {
		ProductID    int64 `json:"product_id"`
		CollectionID int64 `json:"collection_id"`
	} `json:"collect"`
}
