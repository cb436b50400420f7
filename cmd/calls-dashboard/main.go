package main

import (
	"fmt"
	"log"
	"os"

	"calls_dashboard/config"
	"calls_dashboard/internal/cli"
)

var version = "dev"

func main() {
	if n := config.LoadDotEnv(".env"); n > 0 {
		log.Printf("loaded %d settings from .env", n)
	}
	if err := cli.Run(version); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
