package main

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/shipper-match/internal/match"
)

var (
	batchInput      string
	batchOutput     string
	batchLimit      int
	batchSearchTerm string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Match trade records from a CSV file",
	Long: `Reads trade records from a CSV with a header row and writes one match per
record. Recognized columns: hs_code, country (required), commodity_name,
consignee_name, consignee_zip, port_of_origin, port_of_arrival,
customs_district. Unknown columns are ignored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrap(err, "batch: open input")
		}
		defer in.Close() //nolint:errcheck

		records, err := readFactorsCSV(in)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(records) > batchLimit {
			records = records[:batchLimit]
		}

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("matching batch",
			zap.Int("records", len(records)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrent),
		)
		matches := matchAll(ctx, env.Engine, records, cfg.Batch.MaxConcurrent)

		out := cmd.OutOrStdout()
		if batchOutput != "" && batchOutput != "-" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeMatchesCSV(out, records, matches); err != nil {
			return err
		}

		term := batchSearchTerm
		if term == "" {
			term = filepath.Base(batchInput)
		}
		found := foundMatches(matches)
		avg := match.AverageConfidence(found)
		env.Sink.LogSearch(ctx, term, map[string]any{"source": "batch", "records": len(records)}, len(found), avg)

		zap.L().Info("batch complete",
			zap.Int("records", len(records)),
			zap.Int("matched", len(found)),
			zap.Float64("avg_confidence", avg),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "in", "", "input CSV path (required)")
	batchCmd.Flags().StringVar(&batchOutput, "out", "-", "output CSV path, - for stdout")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of records to match (0 = all)")
	batchCmd.Flags().StringVar(&batchSearchTerm, "search-term", "", "search term recorded in the search log (default input file name)")
	_ = batchCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(batchCmd)
}

// csvColumns are the recognized input columns, in output order.
var csvColumns = []string{
	"hs_code", "country", "commodity_name", "consignee_name",
	"consignee_zip", "port_of_origin", "port_of_arrival", "customs_district",
}

var matchColumns = []string{
	"company_name", "confidence_score", "strategy", "confidence_sources",
	"apollo_verified", "port_zip_match", "hs_mapping_match",
	"commodity_keyword_match", "country_port_match",
}

// readFactorsCSV parses trade records from CSV. The header row is matched
// case-insensitively; hs_code and country columns are required.
func readFactorsCSV(r io.Reader) ([]match.ConfidenceFactors, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, eris.New("batch: csv is empty")
		}
		return nil, eris.Wrap(err, "batch: read csv header")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"hs_code", "country"} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("batch: csv is missing required column %q", required)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []match.ConfidenceFactors
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read csv line %d", line)
		}
		records = append(records, match.ConfidenceFactors{
			HSCode:          get(row, "hs_code"),
			Country:         get(row, "country"),
			CommodityName:   get(row, "commodity_name"),
			ConsigneeName:   get(row, "consignee_name"),
			ConsigneeZip:    get(row, "consignee_zip"),
			PortOfOrigin:    get(row, "port_of_origin"),
			PortOfArrival:   get(row, "port_of_arrival"),
			CustomsDistrict: get(row, "customs_district"),
		})
	}
	return records, nil
}

// writeMatchesCSV writes each record followed by its match.
func writeMatchesCSV(w io.Writer, records []match.ConfidenceFactors, matches []match.CompanyMatch) error {
	if len(records) != len(matches) {
		return eris.Errorf("batch: %d records but %d matches", len(records), len(matches))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, csvColumns...), matchColumns...)); err != nil {
		return eris.Wrap(err, "batch: write csv header")
	}
	for i, f := range records {
		m := matches[i]
		row := []string{
			f.HSCode, f.Country, f.CommodityName, f.ConsigneeName,
			f.ConsigneeZip, f.PortOfOrigin, f.PortOfArrival, f.CustomsDistrict,
			m.CompanyName,
			strconv.Itoa(m.ConfidenceScore),
			string(m.Strategy),
			strings.Join(m.ConfidenceSources, "; "),
			strconv.FormatBool(m.ApolloVerified),
			strconv.FormatBool(m.PortZipMatch),
			strconv.FormatBool(m.HSMappingMatch),
			strconv.FormatBool(m.CommodityKeywordMatch),
			strconv.FormatBool(m.CountryPortMatch),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "batch: write csv row %d", i+1)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "batch: flush csv")
}

// matchAll matches records with at most concurrency engine calls in flight.
// Results keep the input order.
func matchAll(ctx context.Context, engine *match.Engine, records []match.ConfidenceFactors, concurrency int) []match.CompanyMatch {
	if concurrency < 1 {
		concurrency = 1
	}
	matches := make([]match.CompanyMatch, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, f := range records {
		g.Go(func() error {
			matches[i] = engine.BestMatch(gctx, f)
			return nil
		})
	}
	_ = g.Wait()
	return matches
}
