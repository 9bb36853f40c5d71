package main

import "github.com/example/supplybot/cmd"

func main() {
	cmd.Execute()
}
