package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shipper-match/internal/match"
)

func TestReadFactorsCSV(t *testing.T) {
	input := "HS_Code,Country,Commodity_Name,consignee_name,notes\n" +
		"8471600000,South Korea,computer monitors,Acme Freight LLC,ignored\n" +
		"8528520000, Taiwan ,LCD display,,\n"

	records, err := readFactorsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, match.ConfidenceFactors{
		HSCode:        "8471600000",
		Country:       "South Korea",
		CommodityName: "computer monitors",
		ConsigneeName: "Acme Freight LLC",
	}, records[0])
	assert.Equal(t, "Taiwan", records[1].Country)
	assert.Empty(t, records[1].ConsigneeName)
}

func TestReadFactorsCSV_ShortRows(t *testing.T) {
	input := "hs_code,country,port_of_arrival\n8471600000,China\n"

	records, err := readFactorsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].PortOfArrival)
}

func TestReadFactorsCSV_Errors(t *testing.T) {
	_, err := readFactorsCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv is empty")

	_, err = readFactorsCSV(strings.NewReader("hs_code,commodity_name\n8471600000,monitors\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "country"`)

	_, err = readFactorsCSV(strings.NewReader("hs_code,country\n\"8471600000,China\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read csv line 2")
}

func TestWriteMatchesCSV(t *testing.T) {
	records := []match.ConfidenceFactors{{HSCode: "8471600000", Country: "South Korea"}}
	matches := []match.CompanyMatch{{
		CompanyName:       "Samsung Electronics Co Ltd",
		ConfidenceScore:   5,
		Strategy:          match.StrategyPatternInference,
		ConfidenceSources: []string{"Pattern Inference", "No Apollo Contact"},
	}}

	var buf bytes.Buffer
	require.NoError(t, writeMatchesCSV(&buf, records, matches))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, append(append([]string{}, csvColumns...), matchColumns...), rows[0])
	assert.Equal(t, "8471600000", rows[1][0])
	assert.Equal(t, "Samsung Electronics Co Ltd", rows[1][8])
	assert.Equal(t, "5", rows[1][9])
	assert.Equal(t, "pattern_inference", rows[1][10])
	assert.Equal(t, "Pattern Inference; No Apollo Contact", rows[1][11])
	assert.Equal(t, "false", rows[1][12])
}

func TestWriteMatchesCSV_LengthMismatch(t *testing.T) {
	err := writeMatchesCSV(&bytes.Buffer{}, []match.ConfidenceFactors{{}}, nil)
	require.Error(t, err)
}

func TestMatchAll_PreservesOrder(t *testing.T) {
	engine := match.NewEngine(nil, nil)
	records := []match.ConfidenceFactors{
		{HSCode: "8471600000", Country: "South Korea"},
		{HSCode: "0306170000", Country: "Ecuador"},
		{HSCode: "8517130000", Country: "China"},
		{HSCode: "8471600000", Country: "Germany"},
	}

	for _, concurrency := range []int{0, 1, 3, 16} {
		got := matchAll(context.Background(), engine, records, concurrency)
		require.Len(t, got, len(records))
		assert.Equal(t, "Samsung Electronics Co Ltd", got[0].CompanyName)
		assert.Equal(t, "Ecuador Trading Company", got[1].CompanyName)
		assert.Equal(t, "Hon Hai Precision Industry Co Ltd", got[2].CompanyName)
		assert.Equal(t, "Logitech International SA", got[3].CompanyName)
	}
}

func TestFoundMatches(t *testing.T) {
	found := foundMatches([]match.CompanyMatch{match.EmptyMatch(), {CompanyName: "Acme", ConfidenceScore: 60}})
	require.Len(t, found, 1)
	assert.Equal(t, "Acme", found[0].CompanyName)
}
