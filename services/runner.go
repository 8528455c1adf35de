package services

import (
	"context"
	"fmt"
	"time"

	"carbi-scraper/models"
	"carbi-scraper/storage"
	"carbi-scraper/utils"
)

// Fetcher renders a dealer page and returns its HTML
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// ListingExtractor turns a rendered page into raw listings
type ListingExtractor interface {
	Extract(dealerID, pageURL, html string) ([]*models.RawListing, error)
}

// Runner executes one scraper run over every configured dealer
type Runner struct {
	store      storage.Store
	fetcher    Fetcher
	extractor  ListingExtractor
	reconciler *Reconciler
	limiter    *utils.RateLimiter
	logger     *utils.Logger
	now        func() time.Time
}

// NewRunner creates a new Runner
func NewRunner(store storage.Store, fetcher Fetcher, extractor ListingExtractor, limiter *utils.RateLimiter, logger *utils.Logger) *Runner {
	return &Runner{
		store:      store,
		fetcher:    fetcher,
		extractor:  extractor,
		reconciler: NewReconciler(store, logger),
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}
}

// runState is the configuration loaded once at the start of a run
type runState struct {
	dealers []models.Dealer
	policy  *Policy
	known   map[string]map[string]*models.Car // dealer ID -> VRM -> car
}

// Run loads the configuration and processes dealers one at a time. Only a
// configuration load failure is returned as an error; dealer failures are
// recorded in the report.
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{StartedAt: r.now()}

	r.logger.Info("Fetching configuration...")
	state, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, dealer := range state.dealers {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Warn("Run interrupted before dealer %s: %v", dealer.ID, err)
			break
		}
		res, raw := r.processDealer(ctx, dealer, state)
		report.Dealers = append(report.Dealers, res)
		report.Raw = append(report.Raw, raw...)
	}

	report.FinishedAt = r.now()
	r.logger.Info("Scraper job completed in %v", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	return report, nil
}

func (r *Runner) load(ctx context.Context) (*runState, error) {
	targets, err := r.store.LoadTargetModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load target models: %w", err)
	}
	rules, err := r.store.LoadInsuranceRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load insurance rules: %w", err)
	}
	dealers, err := r.store.LoadDealers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dealers: %w", err)
	}
	cars, err := r.store.LoadKnownCars(ctx)
	if err != nil {
		return nil, fmt.Errorf("load known cars: %w", err)
	}

	state := &runState{
		dealers: dealers,
		policy:  NewPolicy(targets, rules),
		known:   make(map[string]map[string]*models.Car),
	}
	for i := range cars {
		car := &cars[i]
		byVRM := state.known[car.DealerID]
		if byVRM == nil {
			byVRM = make(map[string]*models.Car)
			state.known[car.DealerID] = byVRM
		}
		// an active row wins over a stale sold duplicate
		if prev, ok := byVRM[car.VRM]; ok && prev.Status == models.CarActive {
			continue
		}
		byVRM[car.VRM] = car
	}

	r.logger.Info("Loaded %d dealers, %d target models, %d insurance rules, %d known cars",
		len(dealers), len(targets), state.policy.RuleCount(), len(cars))
	r.logger.Info("Global max price: %d, forbidden keywords: %v",
		state.policy.MaxPrice(), state.policy.ForbiddenKeywords())
	return state, nil
}

// processDealer runs fetch, extract, classify and reconcile for one dealer.
// When the page cannot be fetched or parsed the dealer is skipped entirely,
// including sold-marking, so a broken site never delists its stock.
func (r *Runner) processDealer(ctx context.Context, dealer models.Dealer, state *runState) (*models.DealerResult, []*models.RawListing) {
	log := r.logger.WithField("dealer", dealer.ID)
	res := &models.DealerResult{DealerID: dealer.ID, Website: dealer.Website}
	start := r.now()
	defer func() { res.Duration = r.now().Sub(start) }()

	log.Info("Processing dealer: %s", dealer.Website)
	raw, err := r.collect(ctx, dealer)
	if err != nil {
		res.Err = err
		log.Error("Failed to scrape dealer %s: %v", dealer.Website, err)
		return res, nil
	}
	res.Found = len(raw)
	log.Info("Found %d listings", len(raw))

	now := r.now()
	var observed []Observation
	for _, l := range raw {
		outcome := Classify(l, state.policy)
		switch outcome.Verdict {
		case Rejected:
			res.Rejected++
			log.Info("Skipping %s: %s in %q", l.VRM, outcome.Reason, l.Title)
		case NeedsReview:
			log.Info("Sending %s to review queue: %s", l.VRM, outcome.Reason)
			item := models.NewReviewItem(l, ReviewKey(l), outcome.Reason, now)
			if err := r.store.UpsertReview(ctx, item); err != nil {
				res.WriteErrors++
				log.Error("Review queue write for %s failed: %v", l.VRM, err)
				continue
			}
			res.Review++
		case Accepted:
			res.Accepted++
			observed = append(observed, Observation{Listing: l, InsuranceGroup: outcome.InsuranceGroup})
		}
	}

	plan := r.reconciler.Plan(dealer.ID, observed, state.known[dealer.ID], now)
	applied := r.reconciler.Apply(ctx, plan)
	res.Inserted = applied.Inserted
	res.Updated = applied.Updated
	res.Relisted = applied.Relisted
	res.Sold = applied.Sold
	res.WriteErrors += applied.Errors

	log.Info("Dealer done: %d new, %d updated, %d sold, %d to review, %d rejected",
		res.Inserted, res.Updated, res.Sold, res.Review, res.Rejected)
	return res, raw
}

// collect fetches and extracts one dealer page, turning a panic in either
// step into an error
func (r *Runner) collect(ctx context.Context, dealer models.Dealer) (raw []*models.RawListing, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while scraping: %v", p)
		}
	}()

	html, err := r.fetcher.Fetch(ctx, dealer.Website)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	raw, err = r.extractor.Extract(dealer.ID, dealer.Website, html)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return raw, nil
}
