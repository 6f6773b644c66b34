// Command tasknet is a command-line client for the TaskNet API. Requests
// carry the stored access credential and are retried once after a refresh
// when the server answers 401.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
