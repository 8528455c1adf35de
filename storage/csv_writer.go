package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"carbi-scraper/models"
	"carbi-scraper/utils"
)

// CSVWriter writes the raw listings of a run to a CSV file
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

// WriteRawListings replaces the file with one row per listing
func (w *CSVWriter) WriteRawListings(listings []*models.RawListing) error {
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"dealer_id", "vrm", "has_reliable_key", "title", "price", "mileage", "year",
		"transmission", "fuel", "doors", "image_url", "scraped_at",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, l := range listings {
		row := []string{
			l.DealerID,
			l.VRM,
			strconv.FormatBool(l.HasReliableKey),
			l.Title,
			strconv.FormatInt(l.Price, 10),
			optionalInt(l.Mileage),
			optionalInt(l.Year),
			l.Transmission,
			l.Fuel,
			optionalInt(l.Doors),
			l.ImageURL,
			l.ScrapedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			w.logger.Error("Failed to write CSV row for '%s': %v", l.Title, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	w.logger.Info("Raw listings written to: %s (%d rows)", w.filePath, len(listings))
	return nil
}

func optionalInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
