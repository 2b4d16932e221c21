package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sells-group/spinplate/internal/model"
)

func formatCandidates(out io.Writer, cands []model.Candidate) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tCUISINE\tPRICE\tMILES\tADDRESS")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t-------\t-----\t-----\t-------")

	for _, c := range cands {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%s\n",
			c.ID,
			truncate(c.Name, 30),
			c.DiningType,
			truncate(c.CuisineLabel, 20),
			priceSymbol(c.PriceTier),
			c.Distance(),
			c.Address,
		)
	}
	_ = w.Flush()
}

func formatPick(out io.Writer, n int, c model.Candidate) {
	_, _ = fmt.Fprintf(out, "#%d  %s  (%s, %s, %s)\n", n, c.Name, c.CuisineLabel, c.DiningType, priceSymbol(c.PriceTier))
	_, _ = fmt.Fprintf(out, "    %.1f mi", c.Distance())
	if c.Address != "" {
		_, _ = fmt.Fprintf(out, "  %s", c.Address)
	}
	_, _ = fmt.Fprintf(out, "\n    %s\n", c.MapsURL())
}

func formatVisits(out io.Writer, visits []model.VisitRecord, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVENUE\tTYPE\tWHEN\tRATING\tNOTES")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t----\t------\t-----")

	for _, v := range visits {
		venue := v.CandidateName
		if venue == "" {
			venue = v.CandidateID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID,
			truncate(venue, 30),
			v.DiningTypeAtVisit,
			v.RelativeLabel(now),
			stars(v.UserRating),
			truncate(v.Notes, 40),
		)
	}
	_ = w.Flush()
}

func priceSymbol(p model.PriceTier) string {
	if p < model.PriceBudget {
		return "?"
	}
	return strings.Repeat("$", int(p))
}

func stars(rating int) string {
	if rating <= 0 {
		return "-"
	}
	return strings.Repeat("*", rating)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
