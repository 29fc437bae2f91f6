package main

import (
	"fmt"
	"os"

	"bemisreg-backend/cmd/bemis-cli/cmd"
)

func main() {
	baseUrl, ok := os.LookupEnv("BEMISD_BASE_URL")
	if !ok {
		fmt.Println("You should specify the base url of the bemisd server in the environment variable BEMISD_BASE_URL.")
		os.Exit(1)
	}
	cmd.BaseUrl = baseUrl

	cmd.Execute()
}
