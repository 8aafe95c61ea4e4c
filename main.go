package main

import (
	"os"

	"github.com/domus-admin/domus-admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
