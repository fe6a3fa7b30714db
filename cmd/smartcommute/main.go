// Command smartcommute watches one commute route and sends Telegram
// departure alerts timed from live traffic.
package main

import (
	// Embedded zone database so TIMEZONE works in minimal containers.
	_ "time/tzdata"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	Execute()
}
