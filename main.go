package main

import "github.com/caldwell/pdpfs/cmd"

func main() {
	cmd.Execute()
}
