// Command gigboard is the freelancer project and contest ledger.
package main

import "github.com/mesh-intelligence/gigboard/internal/cli"

func main() {
	cli.Execute()
}
