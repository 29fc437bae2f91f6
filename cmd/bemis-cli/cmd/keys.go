package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysRemoveCmd)
	keysCmd.AddCommand(keysCountCmd)
	keysCmd.AddCommand(keysCurrentCmd)
	rootCmd.AddCommand(keysCmd)
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the AI service API key pool.",
}

var keysAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add an API key to the pool.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("content-type", "application/json").
			SetBody(map[string]string{"apiKey": args[0]}).
			Post("/api/settings/apikeys")
		if err != nil {
			fatal(err)
		}
		if !res.IsSuccess() {
			fatal(fmt.Errorf("server replied %d: %s", res.StatusCode(), res.String()))
		}
		fmt.Println("api key added")
	},
}

var keysRemoveCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove an API key from the pool.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("content-type", "application/json").
			SetBody(map[string]string{"apiKey": args[0]}).
			Delete("/api/settings/apikeys")
		if err != nil {
			fatal(err)
		}
		if !res.IsSuccess() {
			fatal(fmt.Errorf("server replied %d: %s", res.StatusCode(), res.String()))
		}
		fmt.Println("api key removed")
	},
}

var keysCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show how many API keys are in the pool.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			Get("/api/settings/apikeys/count")
		if err != nil {
			fatal(err)
		}

		var body struct {
			Count int `json:"count"`
		}
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"api keys"})
		t.AppendRow(table.Row{body.Count})
		t.Render()
	},
}

var keysCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the key the rotation would hand out next.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			Get("/api/settings/apikeys/current")
		if err != nil {
			fatal(err)
		}
		if !res.IsSuccess() {
			fatal(fmt.Errorf("server replied %d: %s", res.StatusCode(), res.String()))
		}

		var body struct {
			ApiKey string `json:"apiKey"`
		}
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			fatal(err)
		}
		fmt.Println(body.ApiKey)
	},
}
