package main

import (
	"context"
	"os"

	"github.com/0glabs/curvedeploy/lib/cmd/deploy"
)

func main() {
	os.Exit(deploy.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
