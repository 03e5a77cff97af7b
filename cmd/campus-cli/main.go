package main

import "github.com/nfrund/campus/cmd/campus-cli/cmd"

func main() {
	cmd.Execute()
}
