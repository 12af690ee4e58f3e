// Command schema writes the JSON schema of the lepdl config, or checks a stored one is current
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/lepdl/pkg/config"
)

type options struct {
	Check bool `long:"check" description:"compare the stored schema with the generated one, don't write"`
	Args  struct {
		Output string `positional-arg-name:"output" description:"schema file" default:"schema.json"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		lgr.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	data, err := generate()
	if err != nil {
		return err
	}

	if opts.Check {
		stored, err := os.ReadFile(opts.Args.Output)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		if !bytes.Equal(bytes.TrimSpace(stored), bytes.TrimSpace(data)) {
			return fmt.Errorf("schema %s is out of date, regenerate it", opts.Args.Output)
		}
		fmt.Printf("schema %s is up to date\n", opts.Args.Output)
		return nil
	}

	if err := os.WriteFile(opts.Args.Output, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		return fmt.Errorf("write schema: %w", err)
	}
	fmt.Printf("schema generated at %s\n", opts.Args.Output)
	return nil
}

func generate() ([]byte, error) {
	schema, err := config.GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("generate schema: %w", err)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
