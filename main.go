package main

import "github.com/tanq16/imgdl/cmd"

func main() {
	cmd.Execute()
}
