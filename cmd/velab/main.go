package main

import "martianoff/velab/cmd/velab/commands"

func main() {
	commands.Execute()
}
