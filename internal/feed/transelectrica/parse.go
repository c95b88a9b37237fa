package transelectrica

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"energy-balance/internal/border"
	"energy-balance/internal/feed"
	"energy-balance/internal/interval/domain"
)

// The upstream feed is a JSON array of one-key objects. Numeric values come
// as strings with comma grouping ("7,100"); timestamps as "DD/M/YY HH:MM:SS"
// in Romanian local time.

var (
	errNoTimestamp = errors.New("transelectrica: no timestamp in feed")

	generationKeys = map[string][]string{
		"nuclear": {"NUCL", "NUCL15"},
		"coal":    {"CARB", "CARB15"},
		"gas":     {"GAZE", "GAZE15"},
		"wind":    {"EOLIAN", "EOLIAN15"},
		"hydro":   {"APE"},
		"solar":   {"FOTO", "FOTO15"},
	}
)

// ParseSnapshot decodes a raw feed payload into a snapshot. unitIDs is the
// candidate set of border unit keys to extract; it may be a superset of the
// recognized roster (variants included), the classifier filters downstream.
// The upstream SOLD net value is deliberately not extracted: net balance is
// always recomputed from production and consumption.
func ParseSnapshot(raw []byte, unitIDs []string) (feed.Snapshot, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return feed.Snapshot{}, err
	}

	values := make(map[string]json.RawMessage, len(items))
	for _, item := range items {
		for key, value := range item {
			values[key] = value
		}
	}

	snapshot := feed.Snapshot{Raw: raw}

	timestamp, err := findTimestamp(values)
	if err != nil {
		return feed.Snapshot{}, err
	}
	snapshot.Timestamp = timestamp

	production, hasProduction := number(values, "PROD")
	consumption, hasConsumption := number(values, "CONS")
	snapshot.TotalProduction = production
	snapshot.TotalConsumption = consumption
	snapshot.HasTotals = hasProduction && hasConsumption

	for _, unitID := range unitIDs {
		if value, ok := number(values, unitID); ok {
			snapshot.Readings = append(snapshot.Readings, border.Reading{
				UnitID: unitID,
				Value:  value,
			})
		}
	}

	snapshot.Generation = parseGeneration(values)
	return snapshot, nil
}

// ParseDefault decodes a payload using the default candidate unit set.
// The replay source uses it to re-parse stored payloads the same way the
// live client did.
func ParseDefault(raw []byte) (feed.Snapshot, error) {
	return ParseSnapshot(raw, defaultCandidateUnits)
}

func parseGeneration(values map[string]json.RawMessage) domain.GenerationMix {
	sum := func(keys []string) float64 {
		var total float64
		for _, key := range keys {
			if value, ok := number(values, key); ok {
				total += value
			}
		}
		return total
	}
	return domain.GenerationMix{
		Nuclear: sum(generationKeys["nuclear"]),
		Coal:    sum(generationKeys["coal"]),
		Gas:     sum(generationKeys["gas"]),
		Wind:    sum(generationKeys["wind"]),
		Hydro:   sum(generationKeys["hydro"]),
		Solar:   sum(generationKeys["solar"]),
	}
}

// number coerces a feed value to float64: plain numbers, or strings with
// comma grouping and stray whitespace. Non-numeric values report false.
func number(values map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := values[key]
	if !ok {
		return 0, false
	}

	var asFloat float64
	if err := json.Unmarshal(raw, &asFloat); err == nil {
		return asFloat, true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, false
	}
	cleaned := strings.TrimSpace(strings.ReplaceAll(asString, ",", ""))
	if cleaned == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func findTimestamp(values map[string]json.RawMessage) (time.Time, error) {
	for key, raw := range values {
		if !strings.Contains(strings.ToUpper(key), "DATA") {
			continue
		}
		var asString string
		if err := json.Unmarshal(raw, &asString); err != nil {
			continue
		}
		if ts, err := parseFeedTime(asString); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errNoTimestamp
}

// parseFeedTime parses "DD/M/YY HH:MM:SS" (or 4-digit year) in Romanian
// local time and converts to UTC.
func parseFeedTime(value string) (time.Time, error) {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) != 2 {
		return time.Time{}, domain.ErrMalformedTimestamp
	}
	dateParts := strings.Split(fields[0], "/")
	timeParts := strings.Split(fields[1], ":")
	if len(dateParts) != 3 || len(timeParts) != 3 {
		return time.Time{}, domain.ErrMalformedTimestamp
	}

	numbers := make([]int, 0, 6)
	for _, part := range append(dateParts, timeParts...) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return time.Time{}, domain.ErrMalformedTimestamp
		}
		numbers = append(numbers, n)
	}

	day, month, year := numbers[0], numbers[1], numbers[2]
	hour, minute, second := numbers[3], numbers[4], numbers[5]
	if year < 50 {
		year += 2000
	} else if year < 100 {
		year += 1900
	}

	local := time.Date(year, time.Month(month), day, hour, minute, second, 0, feedLocation())
	if local.Day() != day || int(local.Month()) != month {
		return time.Time{}, domain.ErrMalformedTimestamp
	}
	return local.UTC(), nil
}

func feedLocation() *time.Location {
	if loc, err := time.LoadLocation("Europe/Bucharest"); err == nil {
		return loc
	}
	// Zone database unavailable: fall back to standard EET.
	return time.FixedZone("EET", 2*60*60)
}
