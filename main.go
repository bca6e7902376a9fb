package main

import (
	"github.com/setupshim/setupshim/cmd"
)

func main() {
	cmd.Execute()
}
