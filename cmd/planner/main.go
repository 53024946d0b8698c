// Command planner is the maintenance CLI: it refreshes the rolling
// assignment window, generates plans and mints operator tokens.
package main

import "os"

func main() {
	os.Exit(newCommandLine(os.Stdout, os.Stderr).run(os.Args[1:]))
}
