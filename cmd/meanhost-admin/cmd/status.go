package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StatusResponse is the admin status payload
type StatusResponse struct {
	Status  string   `json:"status"`
	Service string   `json:"service"`
	Modules []string `json:"modules"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show admin API status",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().Request("GET", "/admin/status", nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, data)
		}

		var resp StatusResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		printTable(out, []string{"SERVICE", "STATUS", "MODULES"}, [][]string{
			{resp.Service, resp.Status, strings.Join(resp.Modules, ",")},
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
