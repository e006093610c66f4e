package main

import "github.com/nordgren/eventscout/internal/cli"

func main() {
	cli.Execute()
}
