package main

import "github.com/mcoot/hostguard/internal/cli"

func main() {
	cli.Execute()
}
