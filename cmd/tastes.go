package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calsper/tasteline/internal/consolidate"
)

// tastesCmd represents the tastes command
var tastesCmd = &cobra.Command{
	Use:   "tastes",
	Short: "Shows consolidated genre, artist and descriptor tastes",
	Long: `Lists what you reliably like, split by genre, artist and
descriptor, with whether each taste is strengthening, fading or stable
over the last six months.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showTastes(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(tastesCmd)
}

func showTastes() error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	tastes, err := s.GetTastes(user)
	if err != nil {
		return err
	}
	fmt.Print(tastesAnalysis(tastes))
	return nil
}

func tastesAnalysis(tastes []consolidate.ConsolidatedTaste) Analysis {
	results := [][]string{{"Taste", "Type", "Trend", "Recent avg", "Overall", "Confidence"}}
	for _, t := range tastes {
		results = append(results, []string{
			t.Name,
			string(t.Type),
			string(t.Trend),
			fmt.Sprintf("%.1f", t.RecentAvg),
			fmt.Sprintf("%.1f over %d reviews", t.OlderAvg, t.TotalReviews),
			fmt.Sprintf("%.0f%%", t.Confidence*100),
		})
	}

	summary := fmt.Sprintf("%d consolidated tastes", len(results)-1)
	if len(results) == 1 {
		summary = "No consolidated tastes yet. Rate more music."
	}
	return Analysis{name: "Consolidated tastes", results: results, summary: summary}
}
