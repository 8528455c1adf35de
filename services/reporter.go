package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"carbi-scraper/models"
)

// PrintRunReport formats the run summary and the per-dealer table
func PrintRunReport(w io.Writer, report *models.RunReport, sum *models.RunSummary) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Fprintf(w, "\n╔%s╗\n", border)
	fmt.Fprintf(w, "║%s║\n", center("DEALER INVENTORY RUN", 55))
	fmt.Fprintf(w, "╚%s╝\n", border)

	fmt.Fprintf(w, "\n OVERVIEW\n%s\n", thin)
	fmt.Fprintf(w, "  Dealers processed       : %d (%d failed)\n", sum.Dealers, sum.FailedDealers)
	fmt.Fprintf(w, "  Listings extracted      : %d\n", sum.Found)
	fmt.Fprintf(w, "  New cars                : %d\n", sum.Inserted)
	fmt.Fprintf(w, "  Updated (re-listed)     : %d (%d)\n", sum.Updated, sum.Relisted)
	fmt.Fprintf(w, "  Marked sold             : %d\n", sum.Sold)
	fmt.Fprintf(w, "  Sent to review          : %d\n", sum.Review)
	fmt.Fprintf(w, "  Rejected                : %d\n", sum.Rejected)
	if sum.WriteErrors > 0 {
		fmt.Fprintf(w, "  Write errors            : %d\n", sum.WriteErrors)
	}
	if sum.Found > 0 {
		fmt.Fprintf(w, "  Price avg / min / max   : £%.0f / £%d / £%d\n", sum.AveragePrice, sum.MinPrice, sum.MaxPrice)
	}

	if len(sum.ListingsByFuel) > 0 {
		fmt.Fprintf(w, "\n LISTINGS PER FUEL\n%s\n", thin)
		fuels := make([]string, 0, len(sum.ListingsByFuel))
		for f := range sum.ListingsByFuel {
			fuels = append(fuels, f)
		}
		sort.Slice(fuels, func(i, j int) bool {
			ci, cj := sum.ListingsByFuel[fuels[i]], sum.ListingsByFuel[fuels[j]]
			if ci == cj {
				return fuels[i] < fuels[j]
			}
			return ci > cj
		})
		for _, f := range fuels {
			fmt.Fprintf(w, "  %-12s %4d\n", f+":", sum.ListingsByFuel[f])
		}
	}

	if len(sum.Busiest) > 0 {
		fmt.Fprintf(w, "\n BUSIEST DEALERS\n%s\n", thin)
		for i, d := range sum.Busiest {
			fmt.Fprintf(w, "  %d. %-30s %4d listings\n", i+1, truncate(d.Website, 30), d.Found)
		}
	}

	if len(report.Dealers) > 0 {
		fmt.Fprintf(w, "\n DEALERS\n%s\n", thin)
		for _, d := range report.Dealers {
			status := fmt.Sprintf("%d found, +%d ~%d -%d ?%d", d.Found, d.Inserted, d.Updated, d.Sold, d.Review)
			if d.Failed() {
				status = "FAILED: " + truncate(d.Err.Error(), 40)
			}
			fmt.Fprintf(w, "  %-30s %s\n", truncate(d.Website, 30), status)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", border)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
