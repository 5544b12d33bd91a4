package main

import "github.com/KaramelBytes/cyclestats-cli/cmd"

func main() {
	cmd.Execute()
}
