package services

import (
	"sort"

	"carbi-scraper/models"
	"carbi-scraper/utils"
)

// InsightService computes run totals from a RunReport
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Summarize adds up the dealer counters and computes price stats over every
// listing extracted in the run
func (s *InsightService) Summarize(report *models.RunReport) *models.RunSummary {
	sum := &models.RunSummary{ListingsByFuel: make(map[string]int)}

	for _, d := range report.Dealers {
		sum.Dealers++
		if d.Failed() {
			sum.FailedDealers++
		}
		sum.Found += d.Found
		sum.Rejected += d.Rejected
		sum.Review += d.Review
		sum.Inserted += d.Inserted
		sum.Updated += d.Updated
		sum.Relisted += d.Relisted
		sum.Sold += d.Sold
		sum.WriteErrors += d.WriteErrors
	}

	if len(report.Raw) == 0 {
		s.logger.Warn("No listings extracted this run")
	} else {
		var total int64
		sum.MinPrice = report.Raw[0].Price
		for _, l := range report.Raw {
			total += l.Price
			if l.Price < sum.MinPrice {
				sum.MinPrice = l.Price
			}
			if l.Price > sum.MaxPrice {
				sum.MaxPrice = l.Price
			}
			fuel := l.Fuel
			if fuel == "" {
				fuel = "Unknown"
			}
			sum.ListingsByFuel[fuel]++
		}
		sum.AveragePrice = float64(total) / float64(len(report.Raw))
	}

	busiest := make([]*models.DealerResult, 0, len(report.Dealers))
	for _, d := range report.Dealers {
		if d.Found > 0 {
			busiest = append(busiest, d)
		}
	}
	sort.SliceStable(busiest, func(i, j int) bool {
		return busiest[i].Found > busiest[j].Found
	})
	if len(busiest) > 5 {
		busiest = busiest[:5]
	}
	sum.Busiest = busiest

	return sum
}
