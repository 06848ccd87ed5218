package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewDeadLetterCmd создаёт группу команд для просмотра dead-letter записей.
func NewDeadLetterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dead-letter",
		Aliases: []string{"dl"},
		Short:   "Inspect failed tasks",
	}

	cmd.AddCommand(
		newDeadLetterListCmd(clientFn, outputFn),
		newDeadLetterShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newDeadLetterListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent dead letters",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			letters, err := client.ListDeadLetters(limit)
			if err != nil {
				return err
			}

			headers := []string{"KEY", "TASK", "SIZE", "CREATED"}
			rows := make([][]string, len(letters))
			for i, l := range letters {
				rows[i] = []string{l.Key, l.TaskType, strconv.Itoa(l.Size), l.CreatedAt}
			}

			out.Print(headers, rows, letters)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of records")

	return cmd
}

func newDeadLetterShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Show a dead letter record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			body, err := client.GetDeadLetter(args[0])
			if err != nil {
				return err
			}

			out.RawJSON(body)
			return nil
		},
	}
}
