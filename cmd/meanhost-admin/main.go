// Package main provides the meanhost-admin CLI tool for the admin API.
package main

import (
	"os"

	"github.com/sirosfoundation/go-meanhost/cmd/meanhost-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
