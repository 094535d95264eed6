package main

import "stockkeeper/cmd/client/cmd"

func main() {
	cmd.Execute()
}
