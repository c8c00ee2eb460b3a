package main

import (
	"fmt"
	"os"

	"github.com/teawithlucas/keycloak-provisioner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "provisioner:", err)
		os.Exit(1)
	}
}
