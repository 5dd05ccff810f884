package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/raywall/terraform-provider-lambdaproxy/function/hello"
	"github.com/raywall/terraform-provider-lambdaproxy/internal/probe"
)

// ErrProbeFailed is returned when at least one request missed the expectation.
var ErrProbeFailed = errors.New("probe failed")

func (a *app) newProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that every path and method of a stage returns the greeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := probe.Config{
				URL:          a.v.GetString("url"),
				Paths:        a.v.GetStringSlice("paths"),
				Methods:      a.v.GetStringSlice("methods"),
				ExpectStatus: a.v.GetInt("expect-status"),
				ExpectBody:   a.v.GetString("expect-body"),
				ExpectGone:   a.v.GetBool("expect-gone"),
				Concurrency:  a.v.GetInt("concurrency"),
				Attempts:     a.v.GetUint("attempts"),
				RetryDelay:   a.v.GetDuration("retry-delay"),
				Client:       &http.Client{Timeout: a.v.GetDuration("timeout")},
				Logger:       a.logger,
			}

			report, err := probe.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if a.v.GetBool("json") {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(cmd, report)
			}

			if failures := report.Failures(); len(failures) > 0 {
				return fmt.Errorf("%w: %d of %d requests", ErrProbeFailed, len(failures), len(report.Results))
			}
			return nil
		},
	}
	cmd.Flags().String("url", "", "Stage URL, e.g. https://<api-id>.execute-api.<region>.amazonaws.com/dev")
	cmd.Flags().StringSlice("paths", probe.DefaultPaths, "Paths to request under the stage")
	cmd.Flags().StringSlice("methods", probe.DefaultMethods, "HTTP methods to send to each path")
	cmd.Flags().Int("expect-status", http.StatusOK, "Expected status code")
	cmd.Flags().String("expect-body", hello.Greeting, "Expected response body")
	cmd.Flags().Bool("expect-gone", false, "Pass only if the stage no longer answers (after destroy)")
	cmd.Flags().Int("concurrency", probe.DefaultConcurrency, "Requests in flight")
	cmd.Flags().Uint("attempts", 5, "Attempts per request")
	cmd.Flags().Duration("retry-delay", 2*time.Second, "Delay between attempts")
	cmd.Flags().Duration("timeout", probe.DefaultTimeout, "Per-request timeout")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	return cmd
}

func printReport(cmd *cobra.Command, report probe.Report) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, r := range report.Results {
		status := "PASS"
		if !r.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			status, r.Method, r.URL, r.Status, r.Duration.Round(time.Millisecond), r.Error)
	}
	_ = tw.Flush()
}
