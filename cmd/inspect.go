package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"localcosmos/keyctl/internal/natureguide"
)

var inspectJSON bool

type spaceView struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Possible   bool   `json:"possible"`
	Matches    int    `json:"matches"`
}

type filterView struct {
	Index        int         `json:"index"`
	UUID         string      `json:"uuid"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Weight       int         `json:"weight"`
	Multiple     bool        `json:"allow_multiple_values"`
	Visible      bool        `json:"visible"`
	Restrictions [][]int     `json:"restrictions,omitempty"`
	Spaces       []spaceView `json:"spaces"`
}

type inspectReport struct {
	Guide    string       `json:"guide"`
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Slug     string       `json:"slug"`
	Mode     string       `json:"mode"`
	Children []resultView `json:"children"`
	Filters  []filterView `json:"filters"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Show the filters, spaces and children of a key",
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
		key, row := lk.key, lk.row

		report := &inspectReport{
			Guide:    row.GuideUUID,
			Key:      key.UUID,
			Name:     key.Name,
			Slug:     key.Slug,
			Mode:     string(key.Mode()),
			Children: views(key.Nodes()),
		}
		restrictions := key.FilterVisibilityRestrictions()
		for i, f := range key.Filters() {
			fv := filterView{
				Index:        f.Index,
				UUID:         f.UUID,
				Name:         f.Name,
				Type:         string(f.Type),
				Weight:       f.Weight,
				Multiple:     f.AllowMultipleValues,
				Visible:      f.IsVisible(),
				Restrictions: restrictions[i],
			}
			for _, s := range f.Spaces() {
				fv.Spaces = append(fv.Spaces, spaceView{
					Index:      s.Index,
					Identifier: s.Identifier,
					Label:      spaceLabel(f, s),
					Possible:   s.IsPossible(),
					Matches:    len(s.MatchingNodes()),
				})
			}
			report.Filters = append(report.Filters, fv)
		}

		if wantJSON(inspectJSON) {
			return printJSON(report)
		}
		printInspect(report)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(inspectCmd)
}

// spaceLabel renders the encoded value of a space for display.
func spaceLabel(f *natureguide.Filter, s *natureguide.Space) string {
	switch f.Type {
	case natureguide.RangeFilter:
		if iv, ok := s.Data.Interval(); ok {
			return fmt.Sprintf("%s..%s", formatFloat(iv[0]), formatFloat(iv[1]))
		}
	case natureguide.NumberFilter:
		if v, ok := s.Data.Number(); ok {
			return formatFloat(v)
		}
	case natureguide.ColorFilter:
		if c, ok := s.Data.Color(); ok {
			parts := make([]string, len(c))
			for i, v := range c {
				parts[i] = formatFloat(v)
			}
			return "rgba(" + strings.Join(parts, ",") + ")"
		}
	}
	if s.Data.ShortName != "" {
		return s.Data.ShortName
	}
	if t, ok := s.Data.Text(); ok && t != "" {
		return t
	}
	return s.Identifier
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func printInspect(r *inspectReport) {
	fmt.Printf("\n  %s  (%s, %s mode)\n", r.Name, truncID(r.Key), r.Mode)
	if r.Slug != "" {
		fmt.Printf("  slug: %s  guide: %s\n", r.Slug, truncID(r.Guide))
	}

	fmt.Println("\n  FILTERS")
	fmt.Println("  ────────────────────────────────────────")
	for _, f := range r.Filters {
		flags := ""
		if !f.Visible {
			flags += " hidden"
		}
		if f.Multiple {
			flags += " multi"
		}
		fmt.Printf("  [%d] %s  %s weight=%d%s\n", f.Index, truncTitle(f.Name, 40), f.Type, f.Weight, flags)
		for _, g := range f.Restrictions {
			idx := make([]string, len(g))
			for i, v := range g {
				idx[i] = strconv.Itoa(v)
			}
			fmt.Printf("      needs one of spaces %s\n", strings.Join(idx, ", "))
		}
		for _, s := range f.Spaces {
			marker := " "
			if !s.Possible {
				marker = "x"
			}
			fmt.Printf("    %s %3d  %-30s %d nodes\n", marker, s.Index, truncTitle(s.Label, 30), s.Matches)
		}
	}

	fmt.Println("\n  CHILDREN")
	fmt.Println("  ────────────────────────────────────────")
	for _, c := range r.Children {
		kind := ""
		if c.NodeType == string(natureguide.NodeTypeNode) {
			kind = " [key]"
		}
		fmt.Printf("    %s max=%d  %s%s\n", truncID(c.UUID), c.MaxPoints, truncTitle(c.Name, 40), kind)
	}
	fmt.Println()
}
