package main

import "github.com/mvp-joe/project-remapper/internal/cli"

func main() {
	cli.Execute()
}
