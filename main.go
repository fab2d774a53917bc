package main

import (
	"os"

	"github.com/assetdesk/assetdesk/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
