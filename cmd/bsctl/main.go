package main

import "github.com/mcoot/battleship-server/internal/cli"

func main() {
	cli.Execute()
}
