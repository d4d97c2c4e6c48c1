/*
main.go - Application entry point

PURPOSE:
  Runs the hierarchy server and the operator commands that drive the
  engine from a terminal.

COMMANDS:
  serve      HTTP server (REST data source + engine endpoints)
  seed       Reset the database and load a demo scenario
  suggest    Rank people of an area against a name query
  assign     Assign a person to a tier
  tag        Tag a person with a functionary role
  upline     Print a person's ancestors
  downline   Print a person's direct children

CONFIGURATION:
  Environment (prefix HIERARCHY_), overridden by flags:
    HIERARCHY_PORT          --port          HTTP port (default 8080)
    HIERARCHY_DB            --db            SQLite path (default hierarchy.db)
    HIERARCHY_LOG_LEVEL     --log-level     zap level (default info)
    HIERARCHY_SOURCE_URL    --source        Remote data source base URL
    HIERARCHY_HTTP_TIMEOUT  --http-timeout  Remote request timeout (default 15s)

EXAMPLES:
  # Run with in-memory database and demo data
  ./hierarchy-engine serve --db=":memory:" --scenario riverside-chain

  # Suggest against a running server
  ./hierarchy-engine suggest --source http://localhost:8080 --area-name Riverside ana

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
