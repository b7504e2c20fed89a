package main

import "github/tomi204/fhevm-client/cmd"

func main() {
	cmd.Execute()
}
