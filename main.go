package main

import "jonnyzzz.com/v8fetch/cmd"

func main() {
	cmd.Execute()
}
