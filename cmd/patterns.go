package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calsper/tasteline/internal/patterns"
)

// patternsCmd represents the patterns command
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Shows detected behavioral patterns",
	Long: `Lists the behavioral patterns the engine has noticed in your rating
history, ranked by importance in the cognitive graph. Patterns age from
emerging through confirmed to fading and dormant as the evidence comes
and goes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showPatterns(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)

	patternsCmd.Flags().Bool("active", false, "Only show emerging and confirmed patterns")
	viper.BindPFlag("active", patternsCmd.Flags().Lookup("active"))
}

func showPatterns() error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	ps, err := s.GetPatterns(user)
	if err != nil {
		return err
	}

	analysis, err := patternsAnalysis(ps, viper.GetBool("active"))
	if err != nil {
		return err
	}
	fmt.Print(analysis)
	return nil
}

func patternsAnalysis(ps []patterns.Pattern, activeOnly bool) (Analysis, error) {
	results := [][]string{{"Pattern", "Category", "Status", "Confidence", "Seen", "Importance"}}
	for _, p := range ps {
		if activeOnly && !p.Active() {
			continue
		}
		results = append(results, []string{
			p.ID,
			string(p.Category),
			string(p.Status),
			fmt.Sprintf("%.0f%%", p.Confidence*100),
			fmt.Sprintf("%dx, last %s", p.OccurrenceCount, p.LastConfirmed.Format("2006-01-02")),
			fmt.Sprintf("%.3f", p.ImportanceScore),
		})
	}

	summary := fmt.Sprintf("%d patterns", len(results)-1)
	if len(results) == 1 {
		summary = "No patterns detected yet. Ratings accumulate before patterns emerge."
	}
	return Analysis{name: "Behavioral patterns", results: results, summary: summary}, nil
}
