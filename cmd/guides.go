package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var guidesJSON bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a nature guide JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		d, err := openDatabase(true)
		if err != nil {
			return err
		}
		defer d.Close()

		guide, err := d.SaveGuide(raw)
		if err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}
		logger.Info("guide imported", "guide", guide.UUID, "keys", guide.KeyCount)

		fmt.Printf("Imported %s (%s): %d keys, start %s\n",
			guide.Name, truncID(guide.UUID), guide.KeyCount, truncID(guide.StartKey))
		return nil
	},
}

var guidesCmd = &cobra.Command{
	Use:   "guides",
	Short: "List stored nature guides",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		guides, err := d.AllGuides()
		if err != nil {
			return err
		}

		if wantJSON(guidesJSON) {
			return printJSON(guides)
		}
		if len(guides) == 0 {
			fmt.Println("No guides imported.")
			return nil
		}
		for _, g := range guides {
			imported := time.UnixMilli(g.ImportedAt).Format("2006-01-02 15:04")
			fmt.Printf("  %s  %-32s %4d keys  v%-6s %s\n",
				truncID(g.UUID), truncTitle(g.Name, 32), g.KeyCount, g.Version, imported)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <guide>",
	Short: "Remove a stored nature guide and its keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		guide, err := d.GetGuide(args[0])
		if err != nil {
			return err
		}
		if guide == nil {
			return fmt.Errorf("guide not found: %s", args[0])
		}
		if _, err := d.DeleteGuide(guide.UUID); err != nil {
			return err
		}
		logger.Info("guide deleted", "guide", guide.UUID)
		fmt.Printf("Deleted %s (%s), %d keys\n", guide.Name, truncID(guide.UUID), guide.KeyCount)
		return nil
	},
}

func init() {
	guidesCmd.Flags().BoolVar(&guidesJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(guidesCmd)
	rootCmd.AddCommand(deleteCmd)
}

func wantJSON(flag bool) bool {
	return flag || (cfg != nil && cfg.Output == "json")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
