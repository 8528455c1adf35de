package services

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"carbi-scraper/models"
)

// Verdict is the classification result kind
type Verdict int

const (
	Accepted Verdict = iota
	Rejected
	NeedsReview
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case NeedsReview:
		return "needs_review"
	}
	return fmt.Sprintf("verdict(%d)", int(v))
}

// Reasons for review routing
const (
	ReasonNoRuleMatched = "no insurance rule matched"
	ReasonNoVRM         = "no registration mark"
)

// Outcome is what the classifier decided for one listing
type Outcome struct {
	Verdict        Verdict
	InsuranceGroup string
	Reason         string
}

// Classify filters a listing against the policy and resolves its insurance
// group. Listings without a registration mark go to review even when a rule
// matches, since they cannot be tracked across runs.
func Classify(l *models.RawListing, p *Policy) Outcome {
	if kw, ok := p.ForbiddenKeyword(l.Title); ok {
		return Outcome{Verdict: Rejected, Reason: fmt.Sprintf("forbidden keyword %q", kw)}
	}
	if p.OverCeiling(l.Price) {
		return Outcome{Verdict: Rejected, Reason: fmt.Sprintf("price £%d above ceiling £%d", l.Price, p.MaxPrice())}
	}

	group, _, matched := p.InsuranceGroup(l.Title)
	if !l.HasReliableKey {
		return Outcome{Verdict: NeedsReview, InsuranceGroup: group, Reason: ReasonNoVRM}
	}
	if !matched {
		return Outcome{Verdict: NeedsReview, Reason: ReasonNoRuleMatched}
	}
	return Outcome{Verdict: Accepted, InsuranceGroup: group}
}

// ReviewKey identifies a listing in the review queue. Listings with a
// registration mark use it directly; the rest get a content fingerprint so a
// keyless car seen every run maps to the same pending row.
func ReviewKey(l *models.RawListing) string {
	if l.HasReliableKey {
		return l.VRM
	}
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d|%d", strings.ToLower(strings.TrimSpace(l.Title)), l.Price, l.Mileage)))
	return "FP-" + hex.EncodeToString(sum[:8])
}
