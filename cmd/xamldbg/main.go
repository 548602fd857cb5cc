package main

import "github.com/wnxd/xamldbg/cmd/xamldbg/cmd"

func main() {
	cmd.Execute()
}
