package main

import "trainerleave/internal/cli"

func main() {
	cli.Execute()
}
