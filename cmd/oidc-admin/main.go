package main

import "github.com/turtacn/oidc-core/cmd/cli"

func main() {
	cli.Execute()
}
