package main

import "github.com/fakeyudi/touchgrass/cmd"

func main() {
	cmd.Execute()
}
