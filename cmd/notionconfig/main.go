// Command notionconfig shows or rewrites the target store used by
// notionagent.
//
// Usage:
//
//	notionconfig show
//	notionconfig set-block <block-id>
//	notionconfig set-page <page-id>
//
// The store path comes from NOTION_CONFIG_PATH (default notion_config.json).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/martinemde/notionagent/config"
)

type storeEnv struct {
	Path string `env:"NOTION_CONFIG_PATH" envDefault:"notion_config.json"`
}

const usage = `usage:
  notionconfig show
  notionconfig set-block <block-id>
  notionconfig set-page <page-id>`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(stderr, "load .env: %v\n", err)
		return 2
	}
	se, err := env.ParseAs[storeEnv]()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	store := config.NewStore(se.Path)

	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	switch args[0] {
	case "show":
		if len(args) != 1 {
			break
		}
		t, err := store.Load()
		if err != nil {
			fmt.Fprintf(stderr, "read %s: %v\n", store.Path(), err)
			return 1
		}
		fmt.Fprintf(stdout, "path:         %s\ntarget_block: %s\ntarget_page:  %s\n", store.Path(), t.TargetBlock, t.TargetPage)
		return 0
	case "set-block", "set-page":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			break
		}
		id := strings.TrimSpace(args[1])
		set, key := store.SetTargetBlock, "target_block"
		if args[0] == "set-page" {
			set, key = store.SetTargetPage, "target_page"
		}
		if err := set(id); err != nil {
			fmt.Fprintf(stderr, "update %s: %v\n", store.Path(), err)
			return 1
		}
		fmt.Fprintf(stdout, "%s set to %s in %s\n", key, id, store.Path())
		return 0
	}

	fmt.Fprintln(stderr, usage)
	return 2
}
