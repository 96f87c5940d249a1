package main

import "mailharvest/internal/cli"

func main() {
	cli.Execute()
}
