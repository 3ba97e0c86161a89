package main

import (
	"os"

	"github.com/pthm/hxsite/cmd/hxsite/commands"
	"github.com/pthm/hxsite/lib/templengine"
)

func main() {
	// Pages are Go code; sites link their own engine and call
	// commands.Execute with it. This binary serves state inspection and
	// sites without registered pages.
	os.Exit(commands.Execute(templengine.New(), os.Args[1:]))
}
