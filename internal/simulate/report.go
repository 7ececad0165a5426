package simulate

import (
	"fmt"
	"io"
	"maps"
	"slices"
)

// WriteReport prints a human readable summary of stats to w.
func WriteReport(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "==== ranking simulation ====")
	fmt.Fprintf(w, "users:          %d\n", stats.Users)
	fmt.Fprintf(w, "calculations:   %d (skipped %d, failed %d)\n", stats.Calculations, stats.Skipped, stats.Failed)
	fmt.Fprintf(w, "rows persisted: %d\n", stats.RowsPersisted)
	fmt.Fprintf(w, "frozen updates: %d\n", stats.Frozen)
	fmt.Fprintf(w, "rank-ups:       %d\n", stats.RankUps)
	for _, kind := range slices.Sorted(maps.Keys(stats.RankUpsByKind)) {
		fmt.Fprintf(w, "  %-14s %d\n", kind, stats.RankUpsByKind[kind])
	}
	if stats.Calculations > 0 && stats.Duration > 0 {
		fmt.Fprintf(w, "duration:       %s (%.1f calc/s)\n", stats.Duration,
			float64(stats.Calculations)/stats.Duration.Seconds())
	}

	fmt.Fprintln(w, "\n---- leaderboard ----")
	for _, row := range stats.Leaderboard {
		fmt.Fprintf(w, "%4d. %-36s %6d  %s\n", row.Rank, row.UserID, row.Score, row.Tier)
	}

	if len(stats.Inconsistencies) == 0 {
		fmt.Fprintln(w, "\nleaderboard consistent")
		return
	}
	fmt.Fprintf(w, "\n%d inconsistencies:\n", len(stats.Inconsistencies))
	for _, issue := range stats.Inconsistencies {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
}
