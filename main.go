package main

import "github.com/khanhnv2901/wisafe/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
