package main

import "github.com/KaramelBytes/datacopilot/cmd"

func main() {
	cmd.Execute()
}
