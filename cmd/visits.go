package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/spinplate/internal/model"
)

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Manage the visit history",
	Long:  "Commands for listing, recording, rating, and removing visits.",
}

// -- visits list --

var visitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visits, most recent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "visits", false)
		if err != nil {
			return err
		}
		defer env.Close()

		visits := env.Service.Visits()
		if len(visits) == 0 {
			fmt.Fprintln(os.Stderr, "No visits recorded.")
			return nil
		}
		formatVisits(os.Stdout, visits, time.Now())
		return nil
	},
}

// -- visits add --

var visitsAddCmd = &cobra.Command{
	Use:   "add <candidate-id>",
	Short: "Record a visit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		rating, _ := cmd.Flags().GetInt("rating")
		notes, _ := cmd.Flags().GetString("notes")
		diningType, _ := cmd.Flags().GetString("dining-type")

		dt := model.DiningType(diningType)
		if diningType != "" && !dt.Valid() {
			return eris.Errorf("visits add: unknown dining type %q", diningType)
		}

		env, err := initEnv(cmd.Context(), "visits", false)
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Service.AddVisit(cmd.Context(), model.VisitRecord{
			CandidateID:       args[0],
			CandidateName:     name,
			UserRating:        rating,
			Notes:             notes,
			DiningTypeAtVisit: dt,
		})
		if err != nil {
			return eris.Wrap(err, "visits add")
		}
		fmt.Println(v.ID)
		return nil
	},
}

// -- visits rm --

var visitsRemoveCmd = &cobra.Command{
	Use:   "rm <visit-id>",
	Short: "Remove a visit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "visits", false)
		if err != nil {
			return err
		}
		defer env.Close()

		return eris.Wrap(env.Service.RemoveVisit(cmd.Context(), args[0]), "visits rm")
	},
}

// -- visits rate --

var visitsRateCmd = &cobra.Command{
	Use:   "rate <visit-id> <rating>",
	Short: "Rate a visit from 0 (unrated) to 5",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Wrapf(err, "visits rate: rating %q", args[1])
		}
		var notes *string
		if cmd.Flags().Changed("notes") {
			n, _ := cmd.Flags().GetString("notes")
			notes = &n
		}

		env, err := initEnv(cmd.Context(), "visits", false)
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Service.UpdateVisitRating(cmd.Context(), args[0], rating, notes)
		if err != nil {
			return eris.Wrap(err, "visits rate")
		}
		formatVisits(os.Stdout, []model.VisitRecord{v}, time.Now())
		return nil
	},
}

func init() {
	visitsAddCmd.Flags().String("name", "", "venue name")
	visitsAddCmd.Flags().Int("rating", 0, "rating 1-5, 0 for unrated")
	visitsAddCmd.Flags().String("notes", "", "free-form notes")
	visitsAddCmd.Flags().String("dining-type", "", "dining type at visit: dine-in, takeout, bar, both")
	visitsRateCmd.Flags().String("notes", "", "replace the visit notes")

	visitsCmd.AddCommand(visitsListCmd, visitsAddCmd, visitsRemoveCmd, visitsRateCmd)
	rootCmd.AddCommand(visitsCmd)
}
