package main

import "github.com/mfranke/soniclink/cmd/soniclink/cmd"

func main() {
	cmd.Execute()
}
