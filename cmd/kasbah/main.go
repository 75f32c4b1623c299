package main

import "github.com/bryanchriswhite/kasbah/cmd/kasbah/commands"

func main() {
	commands.Execute()
}
