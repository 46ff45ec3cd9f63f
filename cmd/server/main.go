package main

import "newsboard/internal/cmd"

func main() {
	cmd.Run()
}
