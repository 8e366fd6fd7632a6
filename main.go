package main

import "github.com/shaharia-lab/angelia/cmd"

func main() {
	cmd.Execute()
}
