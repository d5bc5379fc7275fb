package main

import "adserver/cmd/adctl/commands"

func main() {
	commands.Execute()
}
