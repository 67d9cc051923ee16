package main

import "github.com/darmiel/clientauth/cmd"

func main() {
	cmd.Execute()
}
