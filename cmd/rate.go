package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/calsper/tasteline/internal/taste"
)

// rateCmd represents the rate command
var rateCmd = &cobra.Command{
	Use:   "rate <track> <rating>",
	Short: "Records a rating for a track",
	Long: `Appends one rating event (0-10, halves allowed) to the log. Every
fifth rating triggers a full recompute of the learned state; use the
recompute command to force one sooner.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := recordRating(args[0], args[1]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)

	rateCmd.Flags().String("artist", "", "Artist of the rated track")
	viper.BindPFlag("artist", rateCmd.Flags().Lookup("artist"))

	rateCmd.Flags().String("genres", "", "Comma-separated genres (e.g. 'shoegaze,dream pop')")
	viper.BindPFlag("genres", rateCmd.Flags().Lookup("genres"))

	rateCmd.Flags().String("descriptors", "", "Comma-separated free-form descriptors (e.g. 'hazy,warm')")
	viper.BindPFlag("descriptors", rateCmd.Flags().Lookup("descriptors"))

	rateCmd.Flags().Float64("age", 0, "Track age in years, for novelty patterns")
	viper.BindPFlag("age", rateCmd.Flags().Lookup("age"))
}

func recordRating(item, ratingArg string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	var rating float64
	if _, err := fmt.Sscanf(ratingArg, "%f", &rating); err != nil {
		return fmt.Errorf("parsing rating %q: %w", ratingArg, err)
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	log := newLogger()
	eng := newEngine(s, log)

	recomputed, err := eng.RecordRating(context.Background(), taste.RatingEvent{
		User:         user,
		Item:         item,
		Artist:       viper.GetString("artist"),
		Rating:       rating,
		Genres:       splitList(viper.GetString("genres")),
		Descriptors:  splitList(viper.GetString("descriptors")),
		ItemAgeYears: viper.GetFloat64("age"),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Rated %q %.1f/10\n", item, rating)
	if recomputed {
		fmt.Println("Taste state recomputed")
	}
	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
