package main

import (
	"github.com/ColonelBlimp/cwtrainer/cmd"
	"github.com/ColonelBlimp/cwtrainer/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
