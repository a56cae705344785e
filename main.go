package main

import (
	"task-marketplace-api/cmd"
)

func main() {
	cmd.Execute()
}
