package main

import "github.com/oshokin/lumen-provision/cmd/lumen-provision/cmd"

func main() {
	cmd.Execute()
}
