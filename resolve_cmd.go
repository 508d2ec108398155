package main

import (
	"encoding/json"
	"os"

	"companyresolver/resolver"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	resolveCity    string
	resolveState   string
	resolveWebsite string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <business name>",
	Short: "Resolve one business and print its profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveCity, "city", "", "City the business is in")
	resolveCmd.Flags().StringVar(&resolveState, "state", "", "State the business is in, name or two-letter code")
	resolveCmd.Flags().StringVar(&resolveWebsite, "website", "", "Known website of the business")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	res := a.service.Resolve(ctx, resolver.Request{
		BusinessName: args[0],
		City:         resolveCity,
		State:        resolveState,
		Website:      resolveWebsite,
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return eris.Wrap(err, "write result")
	}
	if !res.OK() {
		return eris.Errorf("%s: %s", res.ErrorKind, res.Error)
	}
	return nil
}
