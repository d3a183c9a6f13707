package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// Mints random bearer tokens for pasting into a tenant's policy entry.
func main() {
	count := 1
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 1 {
			fmt.Println("Usage: go run cmd/keygen/main.go [count]")
			fmt.Println("Generates bearer tokens for a tenant's tokens list in the policy file")
			os.Exit(1)
		}
		count = n
	}

	tokens := make([]string, count)
	for i := range tokens {
		var buf [24]byte
		if _, err := rand.Read(buf[:]); err != nil {
			fmt.Fprintf(os.Stderr, "generate token: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = "pgw_" + hex.EncodeToString(buf[:])
	}

	fmt.Println("Add to the tenant's entry in the policy file:")
	fmt.Printf("    tokens:\n")
	for _, tok := range tokens {
		fmt.Printf("      - %q\n", tok)
	}
}
