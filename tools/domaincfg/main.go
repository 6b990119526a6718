package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var (
		pkgName string
		varName string
		output  string
	)

	root := &cobra.Command{
		Use:   "domaincfg <config.yaml>",
		Short: "Compile a YAML domain/region layout into Go source for domain.Register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			doc, err := Parse(raw)
			if err != nil {
				return err
			}

			src, err := Generate(doc, pkgName, varName)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = fmt.Fprint(os.Stdout, src)
				return err
			}

			return os.WriteFile(output, []byte(src), 0o644)
		},
	}

	root.Flags().StringVar(&pkgName, "package", "domains", "package name for the generated file")
	root.Flags().StringVar(&varName, "var-name", "Domains", "name of the generated []boot.DomainConfig variable")
	root.Flags().StringVar(&output, "out", "-", "output file, or - for STDOUT")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "domaincfg: %s\n", err)
		os.Exit(1)
	}
}
