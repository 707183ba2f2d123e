package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Shows resolved predictions",
	Long:  `Lists past predictions with what you actually rated and how each was graded.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showHistory(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "Number of predictions to show")
	viper.BindPFlag("history-limit", historyCmd.Flags().Lookup("limit"))
}

func showHistory() error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	entries, err := s.PredictionHistory(user, viper.GetInt("history-limit"))
	if err != nil {
		return err
	}

	results := [][]string{{"When", "Track", "Predicted", "Actual", "Outcome"}}
	for _, e := range entries {
		results = append(results, []string{
			e.RecordedAt.Format("2006-01-02"),
			e.Prediction.Item,
			fmt.Sprintf("%.1f (%.0f%%)", e.Prediction.Predicted, e.Prediction.Confidence*100),
			fmt.Sprintf("%.1f", e.Actual),
			string(e.Class),
		})
	}

	summary := fmt.Sprintf("%d resolved predictions", len(results)-1)
	if len(results) == 1 {
		summary = "No resolved predictions yet."
	}
	fmt.Print(Analysis{name: "Prediction history", results: results, summary: summary})
	return nil
}
