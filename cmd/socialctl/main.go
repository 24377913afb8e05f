// Command socialctl runs one-off maintenance against the SocialHub stores.
package main

import (
	"log"

	"socialhub/cmd/socialctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
