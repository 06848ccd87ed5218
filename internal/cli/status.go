package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewStatusCmd создаёт команду, показывающую health и состояние движка.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine health and stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			health, err := client.Health()
			if err != nil {
				return err
			}

			// Stats есть только у локального движка.
			stats, statsErr := client.Stats()
			if statsErr != nil {
				stats = nil
			}

			if out.jsonMode {
				out.JSON(map[string]any{"health": health, "stats": stats})
				return nil
			}

			rows := [][]string{{"status", health.Status}}
			for _, name := range sortedKeys(health.Checks) {
				rows = append(rows, []string{"check." + name, health.Checks[name]})
			}
			for _, name := range sortedKeys(stats) {
				rows = append(rows, []string{"stats." + name, fmt.Sprint(stats[name])})
			}

			out.Table([]string{"NAME", "VALUE"}, rows)
			return nil
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
