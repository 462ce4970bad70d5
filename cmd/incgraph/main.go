package main

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	Execute()
}
