package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/nlquery"
)

var querySQLOnly bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a natural-language question about the stored roster",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := strings.Join(args, " ")

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (ROSTER_ANTHROPIC_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		translator := nlquery.NewTranslator(nlquery.NewClient(cfg.Anthropic.Key), st, cfg.Anthropic.Model)

		if querySQLOnly {
			sql, err := translator.Translate(ctx, question)
			if err != nil {
				return err
			}
			_, err = os.Stdout.WriteString(sql + "\n")
			return err
		}

		result, err := translator.Query(ctx, question)
		if err != nil {
			return err
		}

		zap.L().Info("query complete",
			zap.String("sql", result.SQL),
			zap.Int("rows", len(result.Results.Rows)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	queryCmd.Flags().BoolVar(&querySQLOnly, "sql-only", false, "print the generated SQL without executing it")
	rootCmd.AddCommand(queryCmd)
}
