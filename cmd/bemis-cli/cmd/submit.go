package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var submitSchoolId string

func init() {
	submitCmd.Flags().StringVar(&submitSchoolId, "school", "", "the portal school id to register the student under")
	submitCmd.MarkFlagRequired("school")
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit <student.json>",
	Short: "Submit a student record (a flat JSON object of portal field names) to the portal.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			fatal(err)
		}
		var record map[string]string
		err = json.Unmarshal(raw, &record)
		if err != nil {
			fatal(fmt.Errorf("%s is not a flat JSON object: %w", args[0], err))
		}

		res, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("content-type", "application/json").
			SetBody(map[string]any{
				"schoolId":    submitSchoolId,
				"studentData": record,
			}).
			Post("/api/submit-student")
		if err != nil {
			fatal(err)
		}

		var body struct {
			Success bool   `json:"success"`
			Status  int    `json:"status"`
			Message string `json:"message"`
		}
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			fatal(fmt.Errorf("server replied %d: %s", res.StatusCode(), res.String()))
		}

		t := newTable()
		t.AppendHeader(table.Row{"success", "portal status", "message"})
		t.AppendRow(table.Row{body.Success, body.Status, body.Message})
		t.Render()

		if !body.Success {
			os.Exit(1)
		}
	},
}
