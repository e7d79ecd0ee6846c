package main

import "southwinds.dev/randpool/cli/cmd"

func main() {
	cmd.Execute()
}
