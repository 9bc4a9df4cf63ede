package ingest

// coerce.go converts raw CSV cells into typed field values. CSV exports are
// messy: currency symbols and thousand separators in prices, assorted boolean
// spellings, JSON blobs embedded in single cells. Numeric coercion defaults
// to 0 on junk rather than erroring; the validator flags the cases that
// matter (negative prices, empty required fields) with row provenance.

import (
	"encoding/json"
	"strconv"
	"strings"

	"menu-import-service/internal/domain"
)

// numericCleaner strips characters commonly found around CSV numbers.
var numericCleaner = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

// coerceFloat parses a price-like cell, tolerating currency symbols and
// thousand separators. Non-numeric input yields 0.
func coerceFloat(raw string) float64 {
	raw = numericCleaner.Replace(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// coerceInt parses a quantity- or order-like cell, defaulting to 0.
func coerceInt(raw string) int {
	raw = numericCleaner.Replace(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}
	// Some exports write integer columns as "2.0".
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

// coerceBool recognizes the truthy tokens "true", "1", and "yes"
// (case-insensitive). Everything else is false.
func coerceBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// coerceQuantityLevels parses a JSON-encoded quantity_levels cell.
// Invalid JSON yields nil; the cell is optional everywhere it appears.
func coerceQuantityLevels(raw string) []domain.QuantityLevel {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var levels []domain.QuantityLevel
	if err := json.Unmarshal([]byte(raw), &levels); err != nil {
		return nil
	}
	return levels
}

// coercePriceMap parses a JSON-encoded prices_by_size cell mapping size
// codes to prices.
func coercePriceMap(raw string) map[string]float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var prices map[string]float64
	if err := json.Unmarshal([]byte(raw), &prices); err != nil {
		return nil
	}
	return prices
}

// optionalInt returns a pointer only when the cell is present and numeric,
// so overrides can distinguish "not overridden" from an explicit 0.
func optionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(numericCleaner.Replace(raw), 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}

// optionalBool returns a pointer only when the cell is non-empty.
func optionalBool(raw string) *bool {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	b := coerceBool(raw)
	return &b
}
