package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/askdb-go/internal/app"
	"github.com/doeshing/askdb-go/internal/domain"
	"github.com/doeshing/askdb-go/internal/version"
)

func newServeCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			errCh := make(chan error, 1)
			go func() {
				errCh <- container.Server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				container.Logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				defer container.Logger.Sync()
				return container.Server.Shutdown(shutdownCtx)
			}
		},
	}
}

func newAskCommand(container *app.Container) *cobra.Command {
	var (
		noRetrieval bool
		maxTokens   int
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.ChatRequest{
				Messages:    []domain.ChatMessage{{Role: "user", Content: strings.Join(args, " ")}},
				MaxTokens:   maxTokens,
				Temperature: temperature,
			}
			if noRetrieval {
				off := false
				req.UseRAG = &off
			}

			resp, err := container.Chat.Answer(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRetrieval, "no-retrieval", false, "Answer without querying the database")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 4096, "Maximum completion tokens")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.7, "Sampling temperature")

	return cmd
}

func newConfigCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := yaml.Marshal(container.Config)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}

func newDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose environment setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := container.DoctorService.Run(cmd.Context())
			displayDoctorReport(cmd.OutOrStdout(), report)
			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			return nil
		},
	}
}

func displayDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show askdb version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "askdb version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.BuildDate != "" {
				fmt.Fprintf(out, "Built: %s\n", version.BuildDate)
			}
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			return nil
		},
	}
}
