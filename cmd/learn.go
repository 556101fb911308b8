package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/shipper-match/internal/learn"
)

var (
	learnMinVotes int
	learnDryRun   bool
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Promote agreeing user corrections into learned HS mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("learn"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		minVotes := learnMinVotes
		if minVotes == 0 {
			minVotes = cfg.Learn.MinVotes
		}

		res, err := learn.NewPromoter(st, minVotes, learnDryRun).Run(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "learn: encode result")
	},
}

func init() {
	learnCmd.Flags().IntVar(&learnMinVotes, "min-votes", 0, "agreeing corrections required (default from config)")
	learnCmd.Flags().BoolVar(&learnDryRun, "dry-run", false, "report promotions without writing them")
	rootCmd.AddCommand(learnCmd)
}
