package main

import "github.com/iksnae/workspace-chat/cmd"

func main() {
	cmd.Execute()
}
