package main

import "github.com/plenert/ledger/ledger/cmd"

func main() {
	cmd.Execute()
}
