package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spinplate/internal/model"
)

var spinCmd = &cobra.Command{
	Use:   "spin",
	Short: "Discover nearby venues and draw random picks",
	Long:  "Runs discovery around a coordinate, then draws --count picks that avoid recently shown venues.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		types, _ := cmd.Flags().GetStringSlice("type")
		within, _ := cmd.Flags().GetFloat64("within")
		count, _ := cmd.Flags().GetInt("count")

		if count < 1 {
			return eris.New("--count must be at least 1")
		}
		facets, err := model.ParseFacets(types)
		if err != nil {
			return eris.Wrap(err, "spin")
		}

		env, err := initEnv(ctx, "spin", true)
		if err != nil {
			return err
		}
		defer env.Close()

		if within <= 0 {
			within = env.Service.DefaultDistance()
		}

		if _, err := env.Service.Discover(ctx, lat, lon, 0); err != nil {
			return eris.Wrap(err, "spin")
		}

		for i := 0; i < count; i++ {
			pick := env.Service.PickRandom(facets, within)
			if pick == nil {
				fmt.Fprintln(os.Stderr, "Nothing matches those filters.")
				return nil
			}
			formatPick(os.Stdout, i+1, *pick)
		}
		return nil
	},
}

func init() {
	spinCmd.Flags().Float64("lat", 0, "latitude in degrees (required)")
	spinCmd.Flags().Float64("lon", 0, "longitude in degrees (required)")
	spinCmd.Flags().StringSlice("type", nil, "dining facets: dine-in, takeout, bar")
	spinCmd.Flags().Float64("within", 0, "maximum distance in miles (default from config)")
	spinCmd.Flags().Int("count", 1, "number of picks to draw")
	_ = spinCmd.MarkFlagRequired("lat")
	_ = spinCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(spinCmd)
}
