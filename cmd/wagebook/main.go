package main

import "wagebook/internal/cli"

func main() {
	cli.Execute()
}
