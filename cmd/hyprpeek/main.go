package main

import "github.com/bryanchriswhite/hyprpeek/cmd/hyprpeek/commands"

func main() {
	commands.Execute()
}
