package main

import "taskbridge/cmd"

func main() {
	cmd.Run()
}
