package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// recomputeCmd represents the recompute command
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuilds learned taste state from the rating log",
	Long: `Replays the rating history through the full pipeline: preference
fingerprint, pattern lifecycle, listening episodes, consolidated tastes,
and drift detection. With --all, does this for every known user.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRecompute(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd)

	recomputeCmd.Flags().Bool("all", false, "Recompute every user in the database")
	viper.BindPFlag("all", recomputeCmd.Flags().Lookup("all"))

	recomputeCmd.Flags().Int("parallelism", 4, "Users recomputed concurrently with --all")
	viper.BindPFlag("parallelism", recomputeCmd.Flags().Lookup("parallelism"))
}

func runRecompute() error {
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	log := newLogger()
	eng := newEngine(s, log)
	ctx := context.Background()

	if viper.GetBool("all") {
		users, err := s.ListUsers()
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		if len(users) == 0 {
			fmt.Println("No users in database")
			return nil
		}
		if err := eng.RecomputeAll(ctx, users, viper.GetInt("parallelism")); err != nil {
			return err
		}
		fmt.Printf("Recomputed %d users\n", len(users))
		return nil
	}

	user, err := requireUser()
	if err != nil {
		return err
	}
	if err := eng.Recompute(ctx, user); err != nil {
		return err
	}
	fmt.Printf("Recomputed taste state for %q\n", user)
	return nil
}
