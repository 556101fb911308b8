package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/shipper-match/internal/match"
)

var matchFactors match.ConfidenceFactors

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a single trade record and print the result as JSON",
	Example: `  shipper-match match --hs-code 8471600000 --country "South Korea"
  shipper-match match --hs-code 8528520000 --country Taiwan --consignee "Acme Freight LLC" --commodity "LCD monitors"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := validateFactors(matchFactors); err != nil {
			return err
		}

		env, err := initEnv(ctx, "match")
		if err != nil {
			return err
		}
		defer env.Close()

		m := env.Engine.BestMatch(ctx, matchFactors)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(m), "match: encode result")
	},
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchFactors.HSCode, "hs-code", "", "HS tariff code (required)")
	f.StringVar(&matchFactors.Country, "country", "", "country of origin (required)")
	f.StringVar(&matchFactors.CommodityName, "commodity", "", "commodity description")
	f.StringVar(&matchFactors.ConsigneeName, "consignee", "", "declared consignee name")
	f.StringVar(&matchFactors.ConsigneeZip, "zip", "", "consignee ZIP code")
	f.StringVar(&matchFactors.PortOfOrigin, "origin", "", "port of origin")
	f.StringVar(&matchFactors.PortOfArrival, "arrival", "", "port of arrival")
	f.StringVar(&matchFactors.CustomsDistrict, "district", "", "customs district")
	_ = matchCmd.MarkFlagRequired("hs-code")
	_ = matchCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(matchCmd)
}
