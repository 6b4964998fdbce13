package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sandeepkv93/support-space-backend/internal/tools/supportctl"
)

func main() {
	if err := supportctl.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
