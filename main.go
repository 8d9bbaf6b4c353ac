package main

import "github.com/theirongolddev/gwlens/cmd"

func main() {
	cmd.Execute()
}
