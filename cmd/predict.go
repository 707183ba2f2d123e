package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict <track>",
	Short: "Predicts how you'd rate a track",
	Long: `Estimates a 0-10 rating for a track you haven't rated, with a
confidence-scaled range, suggested descriptors, and the reasoning behind
the number. Track features come from the catalog when one is configured;
without features the prediction falls back to your recent rating level.
The prediction stays pending until you resolve it with the outcome
command.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPredict(args[0]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
}

func runPredict(item string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	eng := newEngine(s, newLogger())
	p, err := eng.Predict(context.Background(), user, item, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Predicted rating for %q: %.1f (range %.1f-%.1f, confidence %.0f%%)\n",
		item, p.Predicted, p.RangeLow, p.RangeHigh, p.Confidence*100)
	if len(p.SuggestedDescriptors) > 0 {
		fmt.Printf("You might call it: %s\n", strings.Join(p.SuggestedDescriptors, ", "))
	}
	for _, line := range p.Reasoning {
		fmt.Printf("  - %s\n", line)
	}
	fmt.Printf("Prediction id: %s (resolve with 'tasteline outcome %s <actual>')\n", p.ID, p.ID)
	return nil
}
