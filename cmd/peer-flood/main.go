package main

import "github.com/rudransh-shrivastava/peer-flood/internal/cli/cmd"

func main() {
	cmd.Execute()
}
