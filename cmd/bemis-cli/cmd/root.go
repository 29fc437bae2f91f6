package cmd

import (
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var BaseUrl string

var client *resty.Client

var rootCmd = &cobra.Command{
	Use:   "bemis-cli",
	Short: "bemis-cli is a CLI interface for the bemisd registration server.",
}

func Execute() {
	client = resty.New().SetBaseURL(BaseUrl)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
