package main

import "localcosmos/keyctl/cmd"

func main() {
	cmd.Execute()
}
