package main

import (
	"os"
	"strings"
)

// The API can be wired by hand (default) or through a dig container (API_DI=dig).
func main() {
	if strings.EqualFold(os.Getenv("API_DI"), "dig") {
		startWithDig()
		return
	}
	startManual()
}
