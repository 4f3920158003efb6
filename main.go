package main

import "github.com/thomastoledo/prust/cmd"

func main() {
	cmd.Execute()
}
