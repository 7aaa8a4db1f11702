package cmd

import (
	"github.com/spf13/cobra"
)

// entityFlags adds --source and --id flags that select one entity.
func entityFlags(cmd *cobra.Command, source, id *string) {
	cmd.Flags().StringVarP(source, "source", "s", "",
		"source name of the record, for example crossref")
	cmd.Flags().StringVarP(id, "id", "i", "",
		"id of the record in its source")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("id")
}
