// Command gensecret prints a fresh set of signing keys in .env format.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

var keys = []string{
	"ADMIN_ACCESS_SECRET",
	"ADMIN_REFRESH_SECRET",
	"PUBLIC_ACCESS_SECRET",
	"PUBLIC_REFRESH_SECRET",
}

func main() {
	size := pflag.IntP("bytes", "b", 32, "Random bytes per secret")
	pflag.Parse()

	if *size < 16 {
		fmt.Fprintln(os.Stderr, "secrets shorter than 16 bytes are not allowed")
		os.Exit(2)
	}

	for _, key := range keys {
		buf := make([]byte, *size)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%s=%s\n", key, hex.EncodeToString(buf))
	}
}
