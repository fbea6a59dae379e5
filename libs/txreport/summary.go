package txreport

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthNames is the Indonesian month table indexed by time.Month-1.
var MonthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var transactionDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Summary is the result of one reduction over a transaction list.
type Summary struct {
	TotalTransactions       int             `json:"totalTransactions"`
	TotalRevenue            decimal.Decimal `json:"totalRevenue"`
	MostFrequentVehicle     string          `json:"mostFrequentVehicle"`
	BusiestMonth            string          `json:"busiestMonth"`
	MostFrequentDestination string          `json:"mostFrequentDestination"`
	// SkippedDates counts transactions left out of the month tally because
	// their date could not be parsed.
	SkippedDates int `json:"skippedDates"`
}

// MarshalJSON writes TotalRevenue as a JSON number.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		TotalRevenue json.Number `json:"totalRevenue"`
	}{
		plain:        plain(s),
		TotalRevenue: json.Number(s.TotalRevenue.String()),
	})
}

// Breakdown holds the tallies behind a Summary.
type Breakdown struct {
	Vehicles     *Tally
	Months       *Tally
	Destinations *Tally
}

type options struct {
	location *time.Location
}

// Option configures Summarize.
type Option func(*options)

// WithLocation buckets transaction dates by month in loc.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// Summarize reduces transactions into a Summary.
func Summarize(transactions []Transaction, opts ...Option) Summary {
	summary, _ := SummarizeWithBreakdown(transactions, opts...)
	return summary
}

// SummarizeWithBreakdown is Summarize that also returns the per-label counts.
func SummarizeWithBreakdown(transactions []Transaction, opts ...Option) (Summary, Breakdown) {
	cfg := options{location: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(transactions) == 0 {
		return Summary{
			TotalTransactions:       0,
			TotalRevenue:            decimal.Zero,
			MostFrequentVehicle:     NotApplicable,
			BusiestMonth:            NotApplicable,
			MostFrequentDestination: NotApplicable,
		}, Breakdown{Vehicles: &Tally{}, Months: &Tally{}, Destinations: &Tally{}}
	}

	revenue := decimal.Zero
	vehicles := make([]string, 0, len(transactions))
	months := make([]string, 0, len(transactions))
	var destinations []string
	skipped := 0

	for _, tx := range transactions {
		revenue = revenue.Add(tx.Total.Decimal)

		if vehicle := strings.TrimSpace(string(tx.Vehicle)); vehicle != "" {
			vehicles = append(vehicles, vehicle)
		}

		if month, ok := MonthLabel(string(tx.TransactionDate), cfg.location); ok {
			months = append(months, month)
		} else {
			skipped++
		}

		destinations = append(destinations, tx.DestinationLabels()...)
	}

	breakdown := Breakdown{
		Vehicles:     NewTally(vehicles),
		Months:       NewTally(months),
		Destinations: NewTally(destinations),
	}
	return Summary{
		TotalTransactions:       len(transactions),
		TotalRevenue:            revenue,
		MostFrequentVehicle:     breakdown.Vehicles.MostFrequent(),
		BusiestMonth:            breakdown.Months.MostFrequent(),
		MostFrequentDestination: breakdown.Destinations.MostFrequent(),
		SkippedDates:            skipped,
	}, breakdown
}

// MonthLabel maps a transaction date to its month name in loc.
func MonthLabel(raw string, loc *time.Location) (string, bool) {
	t, ok := ParseTransactionDate(raw, loc)
	if !ok {
		return "", false
	}
	return MonthNames[t.Month()-1], true
}

// ParseTransactionDate accepts the ISO-like forms the sheet produces. Values
// carrying a zone are converted to loc; values without one are read in loc.
func ParseTransactionDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.In(loc), true
	}
	for _, layout := range transactionDateLayouts[1:] {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
