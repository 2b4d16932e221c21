package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spinplate/internal/geo"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List classified venues around a coordinate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		radius, _ := cmd.Flags().GetFloat64("radius")
		asGeoJSON, _ := cmd.Flags().GetBool("geojson")

		env, err := initEnv(ctx, "discover", true)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Discover(ctx, lat, lon, radius)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		zap.L().Info("discovered venues",
			zap.Int("count", len(res.Candidates)),
			zap.Float64("radius_miles", res.RadiusMiles),
			zap.String("endpoint", res.Endpoint),
		)

		if asGeoJSON {
			data, err := geo.FeatureCollection(res.Candidates)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		}

		formatCandidates(os.Stdout, res.Candidates)
		return nil
	},
}

func init() {
	discoverCmd.Flags().Float64("lat", 0, "latitude in degrees (required)")
	discoverCmd.Flags().Float64("lon", 0, "longitude in degrees (required)")
	discoverCmd.Flags().Float64("radius", 0, "maximum search radius in miles (default from config)")
	discoverCmd.Flags().Bool("geojson", false, "print a GeoJSON FeatureCollection")
	_ = discoverCmd.MarkFlagRequired("lat")
	_ = discoverCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(discoverCmd)
}
