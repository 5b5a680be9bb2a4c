package task

import (
	"context"
	"log"
	"sync"
	"time"

	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/internal/repository"
	"shopify_sync_v1_202609/internal/service"
)

// ==================== 批量运行参数与结果 ====================

const defaultWorkers = 4

// RunOptions 批量运行过滤参数
type RunOptions struct {
	Barcodes    []string `json:"barcodes"`     // 仅处理指定条码
	ShopDomains []string `json:"shop_domains"` // 仅处理指定店铺
	Limit       int      `json:"limit"`        // 全局上限
	Workers     int      `json:"workers"`      // 并发店铺数
	DryRun      bool     `json:"dry_run"`
}

// RunResult 批量运行汇总
// 单项失败只计数不上抛；整体报错仅限配置问题
type RunResult struct {
	TaskID   string        `json:"task_id"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// shopResult 单店铺 worker 的私有计数，join 后统一汇总，
// 避免共享计数器
type shopResult struct {
	domain  string
	success int
	failed  int
	skipped int
}

// productHandler 单个 (商品, 店铺) 的处理函数（创建或更新）
type productHandler func(ctx context.Context, rt *service.ShopRuntime, product *model.Product) (service.SyncOutcome, error)

// ==================== 编排器 ====================

// syncRunner 批量编排器
// 按店铺分组 → 每店铺一个 worker（店铺级资源只准备一次）→
// 店铺内商品严格顺序处理（尊重远端的单店限速）
type syncRunner struct {
	shopRepo repository.ShopRepository
	syncSvc  *service.SyncService
}

// run 执行一批 (商品, 店铺) 工作项
func (r *syncRunner) run(ctx context.Context, kind string, due []model.Listing, opts RunOptions, handle productHandler) RunResult {
	groups, order := groupByShop(filterDue(due, opts))

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	sem := make(chan struct{}, workers)
	results := make(chan shopResult, len(order))
	var wg sync.WaitGroup

	for _, domain := range order {
		items := groups[domain]
		sem <- struct{}{}
		wg.Add(1)

		go func(domain string, items []model.Listing) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- r.runShop(ctx, kind, domain, items, opts.DryRun, handle)
		}(domain, items)
	}

	wg.Wait()
	close(results)

	var total RunResult
	for res := range results {
		total.Success += res.success
		total.Failed += res.failed
		total.Skipped += res.skipped
	}
	return total
}

// runShop 单店铺任务：准备一次，顺序处理，失败不中断同组
func (r *syncRunner) runShop(ctx context.Context, kind, domain string, items []model.Listing, dryRun bool, handle productHandler) shopResult {
	res := shopResult{domain: domain}

	shop, err := r.shopRepo.GetByDomain(ctx, domain)
	if err != nil {
		log.Printf("[Batch:%s] 店铺 %s 加载失败，整批跳过: %v", kind, domain, err)
		res.skipped = len(items)
		return res
	}

	rt, err := r.syncSvc.PrepareShop(ctx, shop)
	if err != nil {
		// 店铺级准备失败：该店铺的所有工作项跳过，不做半截处理
		log.Printf("[Batch:%s] 店铺 %s 未就绪，整批跳过: %v", kind, domain, err)
		res.skipped = len(items)
		return res
	}

	for i := range items {
		product := items[i].Product
		if product == nil {
			res.skipped++
			continue
		}

		if dryRun {
			log.Printf("[Batch:%s] dry-run %s @ %s", kind, product.Barcode, domain)
			res.skipped++
			continue
		}

		outcome, err := handle(ctx, rt, product)
		switch outcome {
		case service.OutcomeSuccess:
			res.success++
		case service.OutcomeSkipped:
			res.skipped++
		default:
			res.failed++
			log.Printf("[Batch:%s] %s @ %s 处理失败: %v", kind, product.Barcode, domain, err)
		}
	}
	return res
}

// ==================== 分组与过滤 ====================

func filterDue(due []model.Listing, opts RunOptions) []model.Listing {
	barcodeSet := toSet(opts.Barcodes)
	domainSet := toSet(opts.ShopDomains)

	filtered := make([]model.Listing, 0, len(due))
	for i := range due {
		l := due[i]
		if len(barcodeSet) > 0 {
			if l.Product == nil || !barcodeSet[l.Product.Barcode] {
				continue
			}
		}
		if len(domainSet) > 0 && !domainSet[l.ShopDomain] {
			continue
		}
		filtered = append(filtered, l)
		if opts.Limit > 0 && len(filtered) >= opts.Limit {
			break
		}
	}
	return filtered
}

// groupByShop 按店铺域名分组，保持调度器给出的顺序
func groupByShop(due []model.Listing) (map[string][]model.Listing, []string) {
	groups := make(map[string][]model.Listing)
	var order []string
	for i := range due {
		domain := due[i].ShopDomain
		if _, seen := groups[domain]; !seen {
			order = append(order, domain)
		}
		groups[domain] = append(groups[domain], due[i])
	}
	return groups, order
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
