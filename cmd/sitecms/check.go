package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/sitecms"
	"github.com/eringen/sitecms/content"
)

var checkCmd = &cobra.Command{
	Use:   "check [schema.yaml]",
	Short: "Validate a resource schema file",
	Long: `Parse and validate a resource schema file. Without an argument the
built-in schemas are checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		mapperName := s.Mapper
		if mapperName == "" {
			mapperName = content.MapperFlat
		}
		printSuccess(out, "%s: %d fields, %d placements, %d lists (%s)",
			name, len(s.Fields), len(s.Placements), len(s.Lists), mapperName)
		if errs := content.Validate(s, s.NewDocument(sitecms.DefaultDocumentID)); !errs.OK() {
			printWarning(out, "%s: a new document needs editing before it can be published: %s", name, errs)
		}
	}
	return nil
}

func loadRegistry(args []string) (*content.Registry, error) {
	if len(args) == 0 || args[0] == "" {
		return sitecms.DefaultRegistry()
	}
	reg, err := content.LoadSchemas(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return reg, nil
}
