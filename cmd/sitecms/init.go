package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/sitecms/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init <module-or-name>",
	Short: "Create a new sitecms project",
	Long: `Create a new sitecms project in a directory named after the last path
segment of the argument.

Examples:
  sitecms init mysite
  sitecms init github.com/user/mysite`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	data := scaffold.NewData(args[0])
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Creating new sitecms project: %s\n\n", data.ProjectName)

	created, err := scaffold.Generate(data.ProjectName, data)
	for _, path := range created {
		fmt.Fprintf(out, "  created %s\n", path)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	printSuccess(out, "Done! Next steps:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  cd %s\n", data.ProjectName)
	fmt.Fprintln(out, "  cp .env.example .env")
	fmt.Fprintln(out, "  go mod tidy && go run .")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Edit schemas/site.yaml to declare your pages, then run 'sitecms check schemas/site.yaml'.")
	fmt.Fprintln(out, "Set ADMIN_PASSWORD and ADMIN_SESSION_SECRET in .env for production.")
	return nil
}
