package main

import "github.com/mvp-joe/notebook-functions/internal/cli"

func main() {
	cli.Execute()
}
