package main

import "github.com/Justype/hqadapter/cmd"

func main() {
	cmd.Execute()
}
