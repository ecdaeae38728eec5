package main

import "github.com/rustyeddy/pairtrader/internal/cli"

func main() {
	cli.Execute()
}
