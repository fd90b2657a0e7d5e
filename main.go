package main

import "github.com/xrsl/wfsync/cmd"

func main() {
	cmd.Execute()
}
