package main

import (
	"os"
	"superdb/cmd/superdb/commands"
	"superdb/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	code := commands.ExecuteContext(ctx)
	cancel()
	os.Exit(code)
}
