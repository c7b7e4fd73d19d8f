package main

import (
	"TrackFM/cmd"
)

func main() {
	cmd.Execute()
}
