package main

import "yieldwatcher/internal/cli"

func main() {
	cli.Execute()
}
