package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/ademuri/lastfm-go/lastfm"

	"github.com/calsper/tasteline/internal/store"
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Backfills artist genres from last.fm",
	Long: `Rated tracks often arrive without genres. This fetches top tags
from last.fm for every artist missing them and stores the tags as
genres, which the pipeline folds into events on the next recompute.
Ratings themselves are never modified.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := enrichArtists(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	var apiKey string
	enrichCmd.Flags().StringVar(&apiKey, "lastfm_api_key", "", "last.fm API key")
	viper.BindPFlag("lastfm_api_key", enrichCmd.Flags().Lookup("lastfm_api_key"))

	var secret string
	enrichCmd.Flags().StringVar(&secret, "lastfm_secret", "", "last.fm secret")
	viper.BindPFlag("lastfm_secret", enrichCmd.Flags().Lookup("lastfm_secret"))

	var tagUpdateInterval string
	enrichCmd.Flags().StringVar(&tagUpdateInterval, "tag-update-interval", "8760h", "Time duration after which to re-fetch tags (e.g., 24h)")
	viper.BindPFlag("tag-update-interval", enrichCmd.Flags().Lookup("tag-update-interval"))
}

func enrichArtists() error {
	apiKey := viper.GetString("lastfm_api_key")
	if apiKey == "" {
		return fmt.Errorf("required flag \"lastfm_api_key\" not set")
	}

	interval, err := time.ParseDuration(viper.GetString("tag-update-interval"))
	if err != nil {
		fmt.Printf("Invalid tag-update-interval: %v. Using default 1 year.\n", err)
		interval = 24 * 365 * time.Hour
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	lastfmClient := lastfm.New(apiKey, viper.GetString("lastfm_secret"))
	lastfmClient.SetUserAgent("tasteline/1.0")

	return updateArtistGenres(s, lastfmClient, interval)
}

func updateArtistGenres(s *store.Store, client *lastfm.Api, interval time.Duration) error {
	artists, err := s.ArtistsMissingGenres(interval)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d artists needing genre updates\n", len(artists))
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	for i, artist := range artists {
		fmt.Printf("[%d/%d] Fetching tags for artist: %s\n", i+1, len(artists), artist)
		limiter.Wait(context.Background())

		var topTags lastfm.ArtistGetTopTags
		err := retry.Do(
			func() error {
				var err error
				topTags, err = client.Artist.GetTopTags(lastfm.P{
					"artist":      artist,
					"autocorrect": 1,
				})
				return err
			},
			retry.RetryIf(func(err error) bool {
				if lerr, ok := err.(*lastfm.LastfmError); ok {
					if lerr.Code/100 == 5 {
						fmt.Printf("last.fm errored, retrying: %v\n", lerr)
						return true
					}
				}
				return false
			}),
		)
		if err != nil {
			fmt.Printf("Error fetching tags for artist %s: %v\n", artist, err)
			continue
		}

		// The top handful of tags is plenty; the tail is noise.
		var genres []string
		for _, t := range topTags.Tags {
			genres = append(genres, t.Name)
			if len(genres) == 5 {
				break
			}
		}

		if err := s.SaveArtistGenres(artist, genres); err != nil {
			return fmt.Errorf("saving genres for artist %s: %w", artist, err)
		}
	}

	return nil
}
