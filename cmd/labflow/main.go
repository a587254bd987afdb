package main

import "labflow/internal/cli"

func main() {
	cli.Execute()
}
