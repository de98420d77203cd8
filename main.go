// Package main is the entry point for the rinkstats CLI, which ingests ice
// hockey game events and serves player, team and leaderboard statistics.
package main

import "github.com/pable/rinkstats/cmd"

func main() {
	cmd.Execute()
}
