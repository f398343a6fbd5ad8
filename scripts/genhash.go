//go:build ignore

// Prints a bcrypt hash for seeding accounts: go run scripts/genhash.go <password>
package main

import (
	"fmt"
	"os"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run scripts/genhash.go <password>")
		os.Exit(2)
	}
	h, err := auth.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(h)
}
