package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для работы с задачами.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Enqueue and list tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
		newTaskEnqueueCmd(clientFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered task names",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			names, err := client.ListTasks()
			if err != nil {
				return err
			}

			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = []string{n}
			}

			out.Print([]string{"TASK"}, rows, names)
			return nil
		},
	}
}

func newTaskEnqueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		payload     string
		payloadFile string
		rawJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "enqueue <task>",
		Short: "Enqueue a task",
		Long: `Enqueue a task with an optional payload.

The payload is sent as a string by default. With --json-payload it is sent
as a JSON value and the task receives its compact text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if payloadFile != "" {
				data, err := os.ReadFile(payloadFile)
				if err != nil {
					return fmt.Errorf("read payload file: %w", err)
				}
				payload = string(data)
			}

			req := EnqueueRequest{Task: args[0]}
			if cmd.Flags().Changed("payload") || payloadFile != "" {
				raw, err := encodePayload(payload, rawJSON)
				if err != nil {
					return err
				}
				req.Payload = raw
			}

			resp, err := client.Enqueue(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task enqueued: %s", resp.Task))
			if out.jsonMode {
				out.JSON(resp)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", "Task payload")
	cmd.Flags().StringVarP(&payloadFile, "payload-file", "f", "", "Read payload from file")
	cmd.Flags().BoolVar(&rawJSON, "json-payload", false, "Send payload as a JSON value instead of a string")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")

	return cmd
}

// encodePayload готовит поле payload конверта.
func encodePayload(payload string, rawJSON bool) (json.RawMessage, error) {
	if rawJSON {
		if !json.Valid([]byte(payload)) {
			return nil, fmt.Errorf("payload is not valid JSON")
		}
		return json.RawMessage(payload), nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}
