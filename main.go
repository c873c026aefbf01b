package main

import "github/chapool/go-ethsigner/cmd"

func main() {
	cmd.Execute()
}
