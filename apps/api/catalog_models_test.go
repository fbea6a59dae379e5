package main

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFilterMatchesSearch(t *testing.T) {
	tests := []struct {
		query   string
		primary string
		other   string
		want    bool
	}{
		{"", "Pantai Baron", "Gunungkidul", true},
		{"baron", "Pantai Baron", "Gunungkidul", true},
		{"GUNUNG", "Pantai Baron", "Gunungkidul", true},
		{"barron", "Pantai Baron", "Gunungkidul", true},
		{"pantia", "Pantai Baron", "Gunungkidul", true},
		{"brn", "Pantai Baron", "Gunungkidul", false},
		{"gunungkidl", "Pantai Baron", "Gunungkidul", false},
		{"pantai barn", "Pantai Baron", "Gunungkidul", false},
		{"merapi", "Pantai Baron", "Gunungkidul", false},
	}
	for _, tt := range tests {
		got := catalogFilter{Query: tt.query}.matchesSearch(tt.primary, tt.other)
		assert.Equal(t, tt.want, got, "query %q", tt.query)
	}
}

func TestCatalogFilterMatchesCategory(t *testing.T) {
	assert.True(t, catalogFilter{}.matchesCategory("Pantai"))
	assert.True(t, catalogFilter{Category: "ALL"}.matchesCategory("Pantai"))
	assert.True(t, catalogFilter{Category: " pantai "}.matchesCategory("Pantai"))
	assert.False(t, catalogFilter{Category: "Budaya"}.matchesCategory("Pantai"))
}

func TestSheetListAcceptsStringOrList(t *testing.T) {
	var fromText sheetList
	require.NoError(t, json.Unmarshal([]byte(`" 4, ,5 "`), &fromText))
	assert.Equal(t, sheetList{"4", "5"}, fromText)

	var fromList sheetList
	require.NoError(t, json.Unmarshal([]byte(`[6, "7", ""]`), &fromList))
	assert.Equal(t, sheetList{"6", "7"}, fromList)

	var fromNull sheetList
	require.NoError(t, json.Unmarshal([]byte(`null`), &fromNull))
	assert.Empty(t, fromNull)
}

func TestParsePrice(t *testing.T) {
	assert.True(t, decimal.NewFromInt(25000).Equal(parsePrice(" 25000 ")))
	assert.True(t, decimal.RequireFromString("12.5").Equal(parsePrice("12.5")))
	assert.True(t, parsePrice("Rp 10.000").IsZero())
	assert.True(t, parsePrice("").IsZero())
}

func TestRawOrDefault(t *testing.T) {
	assert.Equal(t, json.RawMessage("0"), rawOrDefault(nil, "0"))
	assert.Equal(t, json.RawMessage("0"), rawOrDefault(json.RawMessage(" null "), "0"))
	assert.Equal(t, json.RawMessage("3"), rawOrDefault(json.RawMessage("3"), "0"))
}

func TestDestinationRecordOnCreateUsesDefaults(t *testing.T) {
	srv := newTestServer(t)
	form := DestinationForm{Name: "A", Location: "B", Category: "C", Description: "D"}

	rec := srv.app.destinationRecord(form, nil)

	assert.JSONEq(t, "0", string(rec.Rating))
	assert.JSONEq(t, `"[]"`, string(rec.Comments))
	assert.JSONEq(t, "0", string(rec.Visits))
	assert.Equal(t, "[0, 0]", rec.Position)
}

func TestEventRecordJoinsDestinations(t *testing.T) {
	srv := newTestServer(t)
	form := EventForm{Title: "T", DestinationIDs: []string{" 1", "", "3 "}}

	rec := srv.app.eventRecord(form)

	assert.Equal(t, "1,3", rec.Destinations)
	assert.Equal(t, "[]", rec.Image)
}
