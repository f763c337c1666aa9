package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := Execute(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
