package main

import (
	"fmt"
	"sort"

	"github.com/ged/inlineschema/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations recorded in the ledger, grouped by model class",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := loadConfigDoc()
		ledger, err := store.Open(doc.Ledger)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()

		records, err := ledger.All(cmd.Context())
		if err != nil {
			return err
		}

		if viper.GetViper().GetString("format") == "yaml" {
			return printYAML(records)
		}
		printText(records)
		return nil
	},
}

func printYAML(records []store.Record) error {
	grouped := groupByModelClass(records)
	b, err := yaml.Marshal(grouped)
	if err != nil {
		return err
	}
	fmt.Print(string(b))
	return nil
}

func printText(records []store.Record) {
	if len(records) == 0 {
		fmt.Println("ledger is empty: no migrations recorded")
		return
	}
	grouped := groupByModelClass(records)
	classes := make([]string, 0, len(grouped))
	for c := range grouped {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		fmt.Printf("%s:\n", c)
		for _, name := range grouped[c] {
			fmt.Printf("  %s\n", name)
		}
	}
}

func groupByModelClass(records []store.Record) map[string][]string {
	grouped := make(map[string][]string)
	for _, r := range records {
		grouped[r.ModelClass] = append(grouped[r.ModelClass], r.Name)
	}
	return grouped
}
