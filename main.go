package main

import "github.com/agentic-research/imgstore/cmd"

func main() {
	cmd.Execute()
}
