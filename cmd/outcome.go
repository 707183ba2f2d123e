package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calsper/tasteline/internal/predict"
)

// outcomeCmd represents the outcome command
var outcomeCmd = &cobra.Command{
	Use:   "outcome <prediction-id> <actual>",
	Short: "Resolves a pending prediction with the real rating",
	Long: `Grades a pending prediction against what you actually rated the
track, then folds the result into the model's accuracy and streak
counters. Each prediction can be resolved once.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runOutcome(args[0], args[1]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(outcomeCmd)

	outcomeCmd.Flags().String("descriptors", "", "Comma-separated descriptors you'd actually use")
	viper.BindPFlag("outcome-descriptors", outcomeCmd.Flags().Lookup("descriptors"))
}

func runOutcome(predictionID, actualArg string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	var actual float64
	if _, err := fmt.Sscanf(actualArg, "%f", &actual); err != nil {
		return fmt.Errorf("parsing rating %q: %w", actualArg, err)
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	eng := newEngine(s, newLogger())
	o, err := eng.RecordOutcome(context.Background(), user, predictionID, actual,
		splitList(viper.GetString("outcome-descriptors")))
	if err != nil {
		return err
	}

	fmt.Printf("Outcome: %s (off by %.1f)\n", o.Class, o.Diff)
	if o.Class == predict.OutcomeSurprise {
		fmt.Println("That one missed by a lot; the model will weigh this.")
	}
	return nil
}
