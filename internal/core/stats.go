package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RitaRen1003/medical-rag-system/internal/model"
)

// StatsSource provides the read-only graph snapshot.
type StatsSource interface {
	Stats(ctx context.Context) (*model.GraphStats, error)
}

const statsRule = "============================================================"

// RenderStats formats a snapshot as the report printed by the stats command
// and appended to the stats log.
func RenderStats(stats *model.GraphStats) string {
	var b strings.Builder

	fmt.Fprintln(&b, statsRule)
	fmt.Fprintln(&b, "Knowledge Graph Statistics Report")
	fmt.Fprintf(&b, "Generated at: %s\n", stats.CollectedAt.Format(time.RFC3339))
	fmt.Fprintln(&b, statsRule)

	fmt.Fprintf(&b, "Total nodes: %d\n", stats.TotalNodes)
	fmt.Fprintf(&b, "Total relationships: %d\n", stats.TotalEdges)

	if len(stats.NodesByLabel) > 0 {
		fmt.Fprintln(&b, "\nNodes by label:")
		for _, lc := range stats.NodesByLabel {
			fmt.Fprintf(&b, "  - %s: %d\n", lc.Label, lc.Count)
		}
	}
	if len(stats.EdgesByType) > 0 {
		fmt.Fprintln(&b, "\nRelationships by type:")
		for _, lc := range stats.EdgesByType {
			fmt.Fprintf(&b, "  - %s: %d\n", lc.Label, lc.Count)
		}
	}

	fmt.Fprintf(&b, "\nAverage node degree: %.2f\n", stats.AvgDegree)
	fmt.Fprintf(&b, "Maximum node degree: %d\n", stats.MaxDegree)
	fmt.Fprintf(&b, "Isolated nodes: %d\n", stats.IsolatedNodes)

	if len(stats.MostConnected) > 0 {
		fmt.Fprintln(&b, "\nMost connected nodes:")
		for _, node := range stats.MostConnected {
			labels := ""
			if len(node.Labels) > 0 {
				labels = " [" + strings.Join(node.Labels, ", ") + "]"
			}
			fmt.Fprintf(&b, "  - %s%s: %d\n", node.Name, labels, node.Degree)
		}
	}

	fmt.Fprintf(&b, "\nUMLS concept nodes: %d\n", stats.ConceptCount)
	fmt.Fprintf(&b, "Nodes with UMLS links: %d\n", stats.LinkedNodes)
	fmt.Fprintf(&b, "UMLS coverage: %.1f%%\n", stats.CoveragePercent())

	if len(stats.TopSemanticTypes) > 0 {
		fmt.Fprintln(&b, "\nTop semantic types:")
		for _, lc := range stats.TopSemanticTypes {
			fmt.Fprintf(&b, "  - %s: %d\n", lc.Label, lc.Count)
		}
	}

	fmt.Fprintln(&b, statsRule)
	return b.String()
}
