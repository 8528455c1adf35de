package services

import (
	"sort"
	"strings"

	"carbi-scraper/models"
)

// Policy is the immutable rule set a run classifies listings with. It is
// built once from the target models and insurance rules loaded at start-up.
type Policy struct {
	forbidden []string
	maxPrice  int64
	rules     []insuranceRule
}

type insuranceRule struct {
	id       string
	keywords []string
	group    string
}

// NewPolicy merges every target model into one forbidden-keyword set and one
// price ceiling, and keeps the insurance rules in the given order.
//
// The ceiling is the highest max price of all models: a listing is only
// rejected when it is over every model's budget.
func NewPolicy(targets []models.TargetModel, rules []models.InsuranceRule) *Policy {
	p := &Policy{}

	seen := make(map[string]bool)
	for _, tm := range targets {
		for _, kw := range tm.ForbiddenKeywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			p.forbidden = append(p.forbidden, kw)
		}
		if tm.MaxPrice != nil && *tm.MaxPrice > p.maxPrice {
			p.maxPrice = *tm.MaxPrice
		}
	}
	sort.Strings(p.forbidden)

	for _, r := range rules {
		ir := insuranceRule{id: r.ID, group: r.InsuranceGroup}
		for _, kw := range r.MustContain {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				ir.keywords = append(ir.keywords, kw)
			}
		}
		p.rules = append(p.rules, ir)
	}
	return p
}

// MaxPrice is the global ceiling in pounds; 0 means no ceiling
func (p *Policy) MaxPrice() int64 { return p.maxPrice }

// ForbiddenKeywords returns a copy of the lower-cased forbidden set, sorted
func (p *Policy) ForbiddenKeywords() []string {
	return append([]string(nil), p.forbidden...)
}

// RuleCount returns the number of insurance rules
func (p *Policy) RuleCount() int { return len(p.rules) }

// ForbiddenKeyword returns the first forbidden keyword contained in title
func (p *Policy) ForbiddenKeyword(title string) (string, bool) {
	lower := strings.ToLower(title)
	for _, kw := range p.forbidden {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// OverCeiling reports whether price exceeds the global ceiling
func (p *Policy) OverCeiling(price int64) bool {
	return p.maxPrice > 0 && price > p.maxPrice
}

// InsuranceGroup returns the group of the first rule whose keywords all
// appear in title. Rules without keywords never match.
func (p *Policy) InsuranceGroup(title string) (group, ruleID string, ok bool) {
	lower := strings.ToLower(title)
	for _, r := range p.rules {
		if len(r.keywords) == 0 {
			continue
		}
		matched := true
		for _, kw := range r.keywords {
			if !strings.Contains(lower, kw) {
				matched = false
				break
			}
		}
		if matched {
			return r.group, r.id, true
		}
	}
	return "", "", false
}
