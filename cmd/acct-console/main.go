package main

import (
	"os"

	"acctconsole/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
