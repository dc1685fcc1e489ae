package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"localcosmos/keyctl/internal/keygraph"
)

var (
	analyzeJSON bool
	analyzeTopN int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <key>",
	Short: "Analyze key structure: coverage, separability, restrictions, health score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		lk, err := loadKey(d, args[0])
		if err != nil {
			return err
		}

		snap := keygraph.FromKey(lk.key)
		config := &keygraph.AnalyzerConfig{
			TopN: analyzeTopN,
		}

		report := keygraph.Analyze(snap, config)

		if wantJSON(analyzeJSON) {
			return printJSON(report)
		}

		printHumanReadable(report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *keygraph.AnalysisReport, snap *keygraph.KeySnapshot) {
	// Health bar
	barLen := int(report.HealthScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  %s\n", report.Name)
	fmt.Printf("  Key Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: coverage=%.2f separability=%.2f discriminance=%.2f reachability=%.2f\n\n",
		report.HealthBreakdown.Coverage,
		report.HealthBreakdown.Separability,
		report.HealthBreakdown.Discriminance,
		report.HealthBreakdown.Reachability)

	// Coverage
	s := report.Structure
	fmt.Println("  COVERAGE")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Nodes: %d  Filters: %d  Spaces: %d\n", s.TotalNodes, s.TotalFilters, s.TotalSpaces)

	if len(s.UnclassifiedIDs) > 0 {
		fmt.Printf("  Unclassified: %d nodes declare no space\n", len(s.UnclassifiedIDs))
		for _, id := range s.UnclassifiedIDs {
			fmt.Printf("    - %s (%s)\n", truncID(id), nodeName(snap, id))
		}
	}
	if len(s.OrphanSpaces) > 0 {
		fmt.Printf("  %d spaces match no node:\n", len(s.OrphanSpaces))
		for _, ref := range s.OrphanSpaces {
			fmt.Printf("    [%d] %s\n", ref.Index, truncTitle(ref.Identifier, 50))
		}
	}
	if len(s.UbiquitousSpaces) > 0 {
		fmt.Printf("  %d spaces match every node:\n", len(s.UbiquitousSpaces))
		for _, ref := range s.UbiquitousSpaces {
			fmt.Printf("    [%d] %s\n", ref.Index, truncTitle(ref.Identifier, 50))
		}
	}

	// Spaces per node
	fmt.Println("\n  Spaces per node:")
	for _, b := range s.CoverageHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			if barWidth < 1 {
				barWidth = 1
			}
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Separability
	if len(s.IndistinguishableGroups) > 0 {
		fmt.Println("\n  SEPARABILITY")
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  %d groups of nodes share the same spaces:\n", len(s.IndistinguishableGroups))
		for _, g := range s.IndistinguishableGroups {
			names := make([]string, len(g))
			for i, id := range g {
				names[i] = truncTitle(nodeName(snap, id), 25)
			}
			fmt.Printf("    %s\n", strings.Join(names, " = "))
		}
	}

	// Restrictions
	if s.RestrictedFilters > 0 {
		fmt.Println("\n  RESTRICTIONS")
		fmt.Println("  ────────────────────────────────────────")
		fmt.Printf("  Restricted filters: %d  Components: %d  Largest: %d\n",
			s.RestrictedFilters, s.RestrictionComponents, s.LargestComponent)
		if len(s.UnreachableFilters) > 0 {
			fmt.Printf("  %d filters can never become visible:\n", len(s.UnreachableFilters))
			for _, id := range s.UnreachableFilters {
				fmt.Printf("    - %s (%s)\n", truncID(id), filterName(snap, id))
			}
		}
	}

	fmt.Println()
}

func nodeName(snap *keygraph.KeySnapshot, uuid string) string {
	for _, n := range snap.Nodes {
		if n.UUID == uuid {
			return n.Name
		}
	}
	return "?"
}

func filterName(snap *keygraph.KeySnapshot, uuid string) string {
	for _, f := range snap.Filters {
		if f.UUID == uuid {
			return truncTitle(f.Name, 40)
		}
	}
	return "?"
}
