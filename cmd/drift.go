package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calsper/tasteline/internal/drift"
)

// driftCmd represents the drift command
var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Shows taste drift alerts",
	Long: `Lists alerts raised when your listening profile shifted between
recomputes: patterns appearing or vanishing, the sonic signature moving,
rating style changing, or active patterns contradicting each other.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := showDrift(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(driftCmd)

	driftCmd.Flags().String("ack", "", "Acknowledge the alert with this id")
	viper.BindPFlag("ack", driftCmd.Flags().Lookup("ack"))

	driftCmd.Flags().Bool("significant", false, "Only show unacknowledged alerts with magnitude >= 0.3")
	viper.BindPFlag("significant", driftCmd.Flags().Lookup("significant"))
}

func showDrift() error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	if id := viper.GetString("ack"); id != "" {
		if err := s.AcknowledgeAlert(user, id); err != nil {
			return err
		}
		fmt.Printf("Acknowledged alert %s\n", id)
		return nil
	}

	_, alerts, err := s.GetDriftState(user)
	if err != nil {
		return err
	}
	fmt.Print(driftAnalysis(alerts, viper.GetBool("significant")))
	return nil
}

func driftAnalysis(alerts []drift.Alert, significantOnly bool) Analysis {
	results := [][]string{{"When", "Type", "Magnitude", "What changed", "Id"}}
	for _, a := range alerts {
		if significantOnly && !a.Significant() {
			continue
		}
		results = append(results, []string{
			a.DetectedAt.Format("2006-01-02"),
			a.Type,
			fmt.Sprintf("%.2f", a.Magnitude),
			a.Description,
			a.ID,
		})
	}

	summary := fmt.Sprintf("%d alerts", len(results)-1)
	if len(results) == 1 {
		summary = "No drift detected."
	}
	return Analysis{name: "Taste drift", results: results, summary: summary}
}
