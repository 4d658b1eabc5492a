// picodump prints every stage of a compilation: the token stream, the
// registered library, the definitions and the generated code.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"picoc/pkg/codegen"
	"picoc/pkg/compiler"
	"picoc/pkg/library"
	"picoc/pkg/utils"
)

const testSource = `a = 1
b = 2.5
c = a + b
Print(StrF(c))
`

func main() {
	var backend string
	cmd := &cobra.Command{
		Use:           "picodump [file]",
		Short:         "Dump the compilation stages of a pico program",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			src, file := testSource, "test.pico"
			if len(args) > 0 {
				var err error
				if src, err = utils.LoadSource(args[0]); err != nil {
					return err
				}
				file = args[0]
			}
			return dump(src, file, backend)
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", "lua", "code generator: c, lua or js")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dump(src, file, backend string) error {
	gen, err := codegen.New(backend)
	if err != nil {
		return err
	}

	fmt.Printf("Source:\n%s\n", src)

	tokens, err := compiler.ParseTokens(src, file)
	if err != nil {
		return err
	}
	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	core := library.Core()
	libTokens, err := compiler.ParseTokens(core.Source, core.Name)
	if err != nil {
		return err
	}
	p := compiler.NewParser(tokens, gen)
	if err := p.ParseLibrary(libTokens); err != nil {
		return err
	}
	fmt.Printf("Library (%d)\n", len(p.Library()))
	for _, fn := range p.Library() {
		fmt.Println(" ", fn)
	}
	fmt.Println()

	if err := p.Parse(); err != nil {
		return err
	}
	fmt.Println("Definitions")
	fmt.Print(p.Definitions())
	fmt.Println()

	fmt.Printf("Generated %s\n", gen.Name())
	fmt.Print(p.Code())
	return nil
}
