package main

import "github.com/parkit/server/cmd/parkit/command"

func main() {
	command.Execute()
}
