package main

import "github.com/GadgetFactory/Papilio-Loader/cmd/papilio/cmd"

func main() {
	cmd.Execute()
}
