// Package main is the entry point for the mcp-l10n-index scout.
//
// This file is intentionally minimal - all business logic lives in internal/.
package main

import "github.com/bad33ndj3/mcp-l10n-index/internal/cli"

func main() {
	cli.Execute()
}
