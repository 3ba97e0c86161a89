package main

import (
	"os"

	"github.com/pthm/hxsite/cmd/hxsite/commands"
	"github.com/pthm/hxsite/example/components"
	"github.com/pthm/hxsite/lib/templengine"
)

// Run from this directory:
//
//	go run . build
//	go run . rebuild _components/card.templ
func main() {
	eng := templengine.New()
	components.Register(eng)
	os.Exit(commands.Execute(eng, os.Args[1:]))
}
