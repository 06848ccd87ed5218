// Harvester CLI — инструмент командной строки для постановки задач
// и просмотра dead-letter записей через HTTP API.
//
// Использование:
//
//	harvester [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	task         Постановка задач и список зарегистрированных задач
//	dead-letter  Просмотр ошибок задач
//	status       Health и состояние движка
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Harvester/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "harvester",
		Short:         "Harvester CLI — task dispatch engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("HARVESTER_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(clientFn, outputFn),
		cli.NewDeadLetterCmd(clientFn, outputFn),
		cli.NewStatusCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
