package main

import (
	"os"

	// cron CRON_TZ schedules and strategy timezones resolve without a system zoneinfo
	_ "time/tzdata"

	"github.com/wonny/etfmomo/cmd/momo/commands"
)

// main is the entry point for the momo CLI
// ⭐ single CLI entry point: go run ./cmd/momo [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
