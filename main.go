package main

import "github.com/ridoystarlord/schemato/cmd"

func main() {
	cmd.Execute()
}
