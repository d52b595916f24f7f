package main

import (
	"github.com/perimetra/vpcmap/cmd/vpcmap/commands"
)

func main() {
	commands.Execute()
}
