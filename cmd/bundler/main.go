package main

import "github.com/gophersatwork/bundler/cmd/bundler/cmd"

func main() {
	cmd.Execute()
}
