package main

import "github.com/calsper/tasteline/cmd"

func main() {
	cmd.Execute()
}
