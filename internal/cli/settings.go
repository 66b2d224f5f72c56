package cli

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change server settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		var settings map[string]string
		if err := client.doJSON(http.MethodGet, "/api/settings", nil, &settings); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(settings)
			return nil
		}
		keys := make([]string, 0, len(settings))
		for k := range settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-34s %s\n", k, settings[k])
		}
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := client.doJSON(http.MethodGet, "/api/settings/"+args[0], nil, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{args[0]: args[1]}
		if err := client.doJSON(http.MethodPost, "/api/settings", body, nil); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
