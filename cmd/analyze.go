package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeUser string
	analyzeSave bool
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video-url>",
	Short: "Fetch and classify a video's comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "analyze", analyzeSave)
		if err != nil {
			return err
		}
		defer env.Close()

		analysis, outcome, err := env.service.Analyze(ctx, analyzeUser, args[0])
		if err != nil {
			return err
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}

		fmt.Printf("Classified %d comments in %d batches (%.2fs)\n",
			analysis.TotalComments, outcome.BatchesProcessed, outcome.ProcessingTime)
		fmt.Printf("Hot: %d  Warm: %d  Cold: %d\n\n",
			analysis.Counts.Hot, analysis.Counts.Warm, analysis.Counts.Cold)

		for _, c := range analysis.Results {
			fmt.Printf("[%s] %s: %s\n", c.LeadType, c.Username, c.Text)
			fmt.Printf("      reason: %s\n", c.LeadReason)
			fmt.Printf("      reply:  %s\n\n", c.Reply)
		}

		if analyzeSave {
			zap.L().Info("analysis saved", zap.String("id", analysis.ID))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "cli", "user id to attribute the analysis to")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the analysis to the configured store")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}
