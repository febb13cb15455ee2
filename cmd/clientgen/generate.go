package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var timing bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the client module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.coordinator(cmd.Context()).Run(cmd.Context())
			if err != nil {
				return err
			}
			a.reportDiagnostics(run)

			state := "unchanged"
			if run.Changed {
				state = "written"
			}
			fmt.Fprintf(a.stdout, "%s %s (%d route(s), %d type(s))\n",
				run.OutputPath, state, len(run.Routes), len(run.Schemas))
			if timing {
				run.Timings.Print(a.stderr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&timing, "timing", false, "Print a per-stage timing breakdown")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail when the client module is missing or out of date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.coordinator(cmd.Context()).Check(cmd.Context())
			if err != nil {
				return err
			}
			a.reportDiagnostics(res.Run)

			switch {
			case res.Missing:
				fmt.Fprintf(a.stderr, "%s does not exist, run clientgen generate\n", res.Run.OutputPath)
				return &exitError{code: 1}
			case !res.UpToDate:
				fmt.Fprintf(a.stderr, "%s is out of date, run clientgen generate\n", res.Run.OutputPath)
				return &exitError{code: 1}
			}
			fmt.Fprintf(a.stdout, "%s is up to date\n", res.Run.OutputPath)
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(a.stdout, "clientgen", version)
		},
	}
}
