package main

import "github.com/monuverse/arch-of-peace-contract/client/cmd"

func main() {
	cmd.Execute()
}
