package main

import (
	"fmt"

	"github.com/ged/inlineschema/internal/store"
	"github.com/spf13/cobra"
)

var initLedgerCmd = &cobra.Command{
	Use:   "init-ledger",
	Short: "Create the migration ledger table if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := loadConfigDoc()
		ledger, err := store.Open(doc.Ledger)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()

		// Open already ensures the table; report the resolved name.
		fmt.Printf("ledger table %q ready\n", ledger.Table())
		return nil
	},
}
