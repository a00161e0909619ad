// Command nutrihub manages patients and their meal plans.
package main

import "github.com/mesh-intelligence/nutrihub/internal/cli"

func main() {
	cli.Execute()
}
