package main

import "github.com/djcass44/npm-get/cmd"

var version = "develop"

func main() {
	cmd.Execute(version)
}
