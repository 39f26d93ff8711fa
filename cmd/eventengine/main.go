// Command eventengine extracts event listings from venue, calendar, and
// ticketing pages.
package main

import "github.com/locate918/eventengine/internal/cli"

func main() {
	cli.Execute()
}
