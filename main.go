package main

import "github.com/tpvfmilk/insight-slide-forge-sub003/cmd"

func main() {
	cmd.Execute()
}
