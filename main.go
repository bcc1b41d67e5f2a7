package main

import (
	"os"

	"github.com/gobb-forum/gobb/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
