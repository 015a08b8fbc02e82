package main

import "github.com/lexlabs/qgen/cmd"

func main() {
	cmd.Execute()
}
