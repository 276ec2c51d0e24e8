package main

import "github.com/audiolibrelab/songquiz/cmd"

func main() {
	cmd.Execute()
}
