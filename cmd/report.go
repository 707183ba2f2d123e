package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calsper/tasteline/internal/store"
	"github.com/calsper/tasteline/internal/taste"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Prints the full taste report",
	Long: `Prints everything the engine has learned in one place: the
acoustic fingerprint, how far your taste has been deciphered, prediction
accuracy and streaks, active patterns, consolidated tastes, and
significant drift alerts.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runReport(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport() error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	analyses, err := gatherReport(s, user)
	if err != nil {
		return err
	}
	for _, a := range analyses {
		fmt.Printf("%s:\n%s\n", a.name, a)
	}
	return nil
}

// gatherReport collects every report section. The email command reuses
// these for the HTML body.
func gatherReport(s *store.Store, user string) ([]Analysis, error) {
	model, err := s.GetModel(user)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("no taste data for %q yet; rate something first", user)
	}

	ps, err := s.GetPatterns(user)
	if err != nil {
		return nil, err
	}
	tastes, err := s.GetTastes(user)
	if err != nil {
		return nil, err
	}
	_, alerts, err := s.GetDriftState(user)
	if err != nil {
		return nil, err
	}

	patternsA, err := patternsAnalysis(ps, true)
	if err != nil {
		return nil, err
	}
	return []Analysis{
		fingerprintAnalysis(model),
		patternsA,
		tastesAnalysis(tastes),
		driftAnalysis(alerts, true),
	}, nil
}

func fingerprintAnalysis(m *taste.PreferenceModel) Analysis {
	results := [][]string{{"Feature", "Sweet spot", "Range", "Weight", "Correlation"}}
	rows := []struct {
		name string
		r    taste.FeatureRange
		corr float64
	}{
		{"energy", m.Energy, m.Correlations.Energy},
		{"valence", m.Valence, m.Correlations.Valence},
		{"danceability", m.Danceability, m.Correlations.Danceability},
		{"acousticness", m.Acousticness, m.Correlations.Acousticness},
		{"tempo", m.Tempo, m.Correlations.Tempo},
	}
	for _, row := range rows {
		results = append(results, []string{
			row.name,
			fmt.Sprintf("%.2f", row.r.SweetSpot),
			fmt.Sprintf("%.2f-%.2f", row.r.Min, row.r.Max),
			fmt.Sprintf("%.2f", row.r.Weight),
			fmt.Sprintf("%+.2f", row.corr),
		})
	}

	summary := fmt.Sprintf(
		"Taste %.0f%% deciphered. Predictions: %d/%d correct (%.0f%%), streak %d (best %d), %d surprises.",
		m.DecipherProgress,
		m.CorrectPredictions, m.TotalPredictions, m.Accuracy()*100,
		m.CurrentStreak, m.LongestStreak, m.SurpriseCount)
	return Analysis{name: "Acoustic fingerprint", results: results, summary: summary}
}
