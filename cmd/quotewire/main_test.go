package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotewire/quotewire"
)

func ptrFloat(f float64) *float64 { return &f }

func ptrInt(i int64) *int64 { return &i }

func TestWriteAnalysis_UpTrend(t *testing.T) {
	var out strings.Builder

	writeAnalysis(&out, &quotewire.Quote{
		Symbol:          "SHOP.TO",
		Currency:        "CAD",
		CurrentPrice:    ptrFloat(110),
		FiftyDayAverage: ptrFloat(100),
		MarketCap:       ptrFloat(140000000000),
	})

	report := out.String()
	require.Contains(t, report, "Analysis for SHOP.TO")
	require.Contains(t, report, "up 10.00%")
	require.Contains(t, report, "110.00 CAD")
	require.Contains(t, report, "100.00 CAD")
	require.Contains(t, report, "140000000000.00 CAD")
}

func TestWriteAnalysis_DownTrend(t *testing.T) {
	var out strings.Builder

	writeAnalysis(&out, &quotewire.Quote{
		Symbol:          "RY.TO",
		Currency:        "CAD",
		CurrentPrice:    ptrFloat(95),
		FiftyDayAverage: ptrFloat(100),
	})

	require.Contains(t, out.String(), "down 5.00%")
}

func TestWriteAnalysis_MissingFieldsSkipTrend(t *testing.T) {
	var out strings.Builder

	writeAnalysis(&out, &quotewire.Quote{
		Symbol:       "TD.TO",
		Currency:     "CAD",
		CurrentPrice: ptrFloat(80),
	})

	report := out.String()
	require.NotContains(t, report, "50-day average")
	require.Contains(t, report, "80.00 CAD")
}

func TestQuoteCSV_HeaderAndRows(t *testing.T) {
	var out strings.Builder

	export := newQuoteCSV(&out)
	require.NoError(t, export.writeHeader())

	at := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)

	require.NoError(t, export.append(at, []*quotewire.Quote{
		{
			Symbol:          "SHOP.TO",
			Currency:        "CAD",
			CurrentPrice:    ptrFloat(110.5),
			Volume:          ptrInt(1200000),
			MarketCap:       ptrFloat(140000000000),
			FiftyDayAverage: ptrFloat(100.25),
		},
		{
			Symbol:   "RY.TO",
			Currency: "CAD",
		},
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "timestamp,symbol,price,volume,market_cap,fifty_day_avg", lines[0])
	require.Equal(t, "2026-08-29T15:30:00Z,SHOP.TO,110.5,1200000,140000000000,100.25", lines[1])

	// Missing fields stay empty rather than fabricating zeros.
	require.Equal(t, "2026-08-29T15:30:00Z,RY.TO,,,,", lines[2])
}

func TestQuoteCSV_AppendsAcrossRefreshes(t *testing.T) {
	var out strings.Builder

	export := newQuoteCSV(&out)
	require.NoError(t, export.writeHeader())

	quote := []*quotewire.Quote{{Symbol: "BNS.TO", Currency: "CAD", CurrentPrice: ptrFloat(60)}}

	require.NoError(t, export.append(time.Unix(0, 0).UTC(), quote))
	require.NoError(t, export.append(time.Unix(60, 0).UTC(), quote))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.NotEqual(t, lines[1], lines[2])
}
