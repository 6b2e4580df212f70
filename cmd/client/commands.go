package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"telegram-entity-parser/internal/adapters/exporter"
	"telegram-entity-parser/internal/adapters/parser"
	"telegram-entity-parser/internal/adapters/source"
	"telegram-entity-parser/internal/bot"
	"telegram-entity-parser/internal/core/services"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
)

const (
	defaultServer  = "http://localhost:8080"
	resultPageSize = 500
)

type outputFlags struct {
	types []string
	xlsx  string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.types, "types", "t", nil, "entity types to keep, comma separated (default: all)")
	f.registerExport(cmd)
}

// registerExport нужен командам, у которых фильтр уже зашит в результат.
func (f *outputFlags) registerExport(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "write the result to this xlsx file instead of stdout")
}

func (f *outputFlags) entityTypes() []domain.EntityType {
	types := make([]domain.EntityType, 0, len(f.types))
	for _, t := range f.types {
		types = append(types, domain.EntityType(t))
	}
	return types
}

func (f *outputFlags) exporter(w io.Writer) ports.Exporter {
	if f.xlsx != "" {
		return exporter.NewExcelExporter(f.xlsx)
	}
	return exporter.NewConsoleExporter(exporter.WithWriter(w))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "client",
		Short:         "Extract Telegram message entities from Bot API update dumps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newLocalCmd(), newRemoteCmd(), newCachedCmd(), newTypesCmd())
	return root
}

func newLocalCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "local <file>...",
		Short: "Decode update files locally",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := extractLocal(args, out.entityTypes())
			if err != nil {
				return err
			}
			return out.exporter(cmd.OutOrStdout()).Export(reports)
		},
	}
	out.register(cmd)
	return cmd
}

// extractLocal разбирает файлы по очереди и объединяет их сущности.
func extractLocal(paths []string, types []domain.EntityType) ([]domain.EntityReport, error) {
	p := parser.NewJsonParser()
	extractor := services.NewExtractionService()

	all := make([]domain.EntityReport, 0)
	for _, path := range paths {
		data, err := source.NewFileSource(path).Fetch()
		if err != nil {
			return nil, err
		}
		updates, err := p.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		reports, err := extractor.ExtractEntities(updates, types...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, reports...)
	}
	return all, nil
}

func newRemoteCmd() *cobra.Command {
	var (
		out      outputFlags
		server   string
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "remote <file>...",
		Short: "Upload update files to the server and wait for the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := bot.NewServerClient(server, timeout)
			reports, err := extractRemote(ctx, client, args, out.entityTypes(), interval)
			if err != nil {
				return err
			}
			return out.exporter(cmd.OutOrStdout()).Export(reports)
		},
	}
	out.register(cmd)
	cmd.Flags().StringVar(&server, "server", defaultServer, "server address")
	cmd.Flags().DurationVar(&interval, "poll", 2*time.Second, "task status polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")
	return cmd
}

func extractRemote(ctx context.Context, api bot.ServerAPI, paths []string, types []domain.EntityType, interval time.Duration) ([]domain.EntityReport, error) {
	files := make([]bot.DocumentFile, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		files = append(files, bot.DocumentFile{Name: filepath.Base(path), Content: f})
	}

	task, err := api.StartTask(ctx, files, types...)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "task %s created\n", task.TaskID)

	return awaitReports(ctx, api, task.TaskID, interval)
}

func awaitReports(ctx context.Context, api bot.ServerAPI, taskID string, interval time.Duration) ([]domain.EntityReport, error) {
	status, err := bot.WaitForTask(ctx, api, taskID, interval)
	if err != nil {
		return nil, err
	}
	if status.Hash != "" {
		fmt.Fprintf(os.Stderr, "result hash %s\n", status.Hash)
	}
	return bot.FetchAllResults(ctx, api, taskID, resultPageSize)
}

func newCachedCmd() *cobra.Command {
	var (
		out      outputFlags
		server   string
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "cached <hash>",
		Short: "Fetch a result the server still keeps in its cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := bot.NewServerClient(server, timeout)
			task, err := client.StartTaskByHash(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			reports, err := awaitReports(cmd.Context(), client, task.TaskID, interval)
			if err != nil {
				return err
			}
			return out.exporter(cmd.OutOrStdout()).Export(reports)
		},
	}
	out.registerExport(cmd)
	cmd.Flags().StringVar(&server, "server", defaultServer, "server address")
	cmd.Flags().DurationVar(&interval, "poll", 500*time.Millisecond, "task status polling interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List supported entity types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range domain.AllEntityTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
		},
	}
}
