package service

import (
	"shopify_sync_v1_202609/internal/model"
)

// ==================== 上架资格判定 ====================
// 纯谓词，调度阶段对每个 (商品, 店铺) 组合执行，必须足够廉价。

// ProductEligible 商品是否可在指定店铺上架
// 依次检查：三条补全流水线全部成功 → 品牌不在排除名单 →
// 至少有一个未被排除且报价大于 0 的供应商（是否有货不在此判定，
// 无货兜底由仲裁负责）
// 不合格时返回原因，供 debug 日志使用
func ProductEligible(product *model.Product, shop *model.Shop) (bool, string) {
	if !product.EnrichmentComplete() {
		return false, "enrichment_incomplete"
	}

	if shop.IsBrandExcluded(product.EffectiveBrand()) {
		return false, "brand_excluded"
	}

	hasOffer := false
	for i := range product.Suppliers {
		o := &product.Suppliers[i]
		if shop.IsSupplierExcluded(o.SupplierName) {
			continue
		}
		if o.HasUsablePrice() {
			hasOffer = true
			break
		}
	}
	if !hasOffer {
		return false, "no_usable_supplier"
	}

	return true, ""
}
