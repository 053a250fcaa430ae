package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/sitecms/editor"
	"github.com/eringen/sitecms/restadapter"
)

var (
	publishRemote  string
	publishToken   string
	publishSchema  string
	publishTimeout time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish <resource> <id>",
	Short: "Validate and publish a document on a remote site",
	Long: `Fetch a document through the REST API of a running site, run the
publish validation locally and publish it.

Example:
  sitecms publish --remote https://example.mn/api --token $API_TOKEN fence main`,
	Args: cobra.ExactArgs(2),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishRemote, "remote", "", "base URL of the REST API, e.g. https://example.mn/api")
	publishCmd.Flags().StringVar(&publishToken, "token", "", "API bearer token")
	publishCmd.Flags().StringVar(&publishSchema, "schema", "", "schema file (default: built-in schemas)")
	publishCmd.Flags().DurationVar(&publishTimeout, "timeout", restadapter.DefaultTimeout, "per-request timeout")
	_ = publishCmd.MarkFlagRequired("remote")
}

func runPublish(cmd *cobra.Command, args []string) error {
	resource, id := args[0], args[1]
	reg, err := loadRegistry([]string{publishSchema})
	if err != nil {
		return err
	}
	schema, ok := reg.Get(resource)
	if !ok {
		return fmt.Errorf("unknown resource %q", resource)
	}

	opts := []restadapter.Option{restadapter.WithTimeout(publishTimeout)}
	if publishToken != "" {
		opts = append(opts, restadapter.WithToken(publishToken))
	}
	adapter, err := restadapter.New(publishRemote, schema, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctrl, err := editor.Open(ctx, adapter, schema, id, editor.Config{})
	if err != nil {
		return fmt.Errorf("%s", restadapter.UserMessage(err))
	}
	defer ctrl.Close()

	errs, err := ctrl.Publish(ctx)
	out := cmd.OutOrStdout()
	switch {
	case !errs.OK():
		for _, msg := range errs.Messages() {
			printWarning(out, "%s", msg)
		}
		return fmt.Errorf("%s/%s is not ready to publish", resource, id)
	case err != nil:
		return fmt.Errorf("%s", restadapter.UserMessage(err))
	}
	printSuccess(out, "published %s/%s", resource, id)
	return nil
}
