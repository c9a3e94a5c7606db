package main

import (
	"os"

	"disk-search/app"
)

func main() {
	os.Exit(app.Run())
}
