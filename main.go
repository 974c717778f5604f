package main

import "github.com/theirongolddev/convstat/cmd"

func main() {
	cmd.Execute()
}
