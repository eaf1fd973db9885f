package main

import "github.com/aita/kvtraverse/cmd"

func main() {
	cmd.Execute()
}
