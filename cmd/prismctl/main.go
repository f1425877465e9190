// Package main is the entry point for the prismctl CLI.
package main

import "github.com/basecamp/prismctl/internal/cli"

func main() {
	cli.Execute()
}
