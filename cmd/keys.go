package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"localcosmos/keyctl/internal/db"
)

var (
	keysGuide string
	keysLimit int
	keysJSON  bool
)

var keysCmd = &cobra.Command{
	Use:   "keys [query]",
	Short: "List the keys of a guide or search keys by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		var keys []db.Key
		switch {
		case len(args) == 1:
			keys, err = d.SearchKeys(args[0], keysLimit)
			if err == nil && keysGuide != "" {
				keys = keepGuide(keys, keysGuide)
			}
		case keysGuide != "":
			keys, err = d.KeysForGuide(keysGuide)
		default:
			guides, gerr := d.AllGuides()
			if gerr != nil {
				return gerr
			}
			for _, g := range guides {
				gk, kerr := d.KeysForGuide(g.UUID)
				if kerr != nil {
					return kerr
				}
				keys = append(keys, gk...)
			}
		}
		if err != nil {
			return err
		}

		if wantJSON(keysJSON) {
			if keys == nil {
				keys = []db.Key{}
			}
			return printJSON(keys)
		}
		if len(keys) == 0 {
			fmt.Println("No keys found.")
			return nil
		}
		for _, k := range keys {
			marker := " "
			if k.IsStart {
				marker = "*"
			}
			fmt.Printf("%s %s  %-36s %3d children %2d filters  %-6s %s\n",
				marker, truncID(k.UUID), truncTitle(k.Name, 36), k.ChildrenCount, k.FilterCount, k.Mode, k.Slug)
		}
		return nil
	},
}

func init() {
	keysCmd.Flags().StringVar(&keysGuide, "guide", "", "Restrict to one guide uuid")
	keysCmd.Flags().IntVar(&keysLimit, "limit", 50, "Maximum search results")
	keysCmd.Flags().BoolVar(&keysJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(keysCmd)
}

func keepGuide(keys []db.Key, guide string) []db.Key {
	var out []db.Key
	for _, k := range keys {
		if k.GuideUUID == guide || strings.HasPrefix(k.GuideUUID, guide) {
			out = append(out, k)
		}
	}
	return out
}
