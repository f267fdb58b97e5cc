// Command cs2log classifies Counter-Strike 2 server logs and serves the
// ingestion and parse-test API.
package main

import (
	"os"

	"github.com/ccollicutt/cs2log/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
