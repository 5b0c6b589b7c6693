package main

import "context"

func main() {
	if err := run(); err != nil && err != context.Canceled {
		panic(err)
	}
}
