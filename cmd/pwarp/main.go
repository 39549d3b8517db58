package main

import (
	"github.com/MeKo-Tech/pwarp/cmd/pwarp/cmd"
)

func main() {
	cmd.Execute()
}
