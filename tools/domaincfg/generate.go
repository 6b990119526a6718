package main

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/printer"
	"go/token"
)

// Generate renders doc as a Go source file in package pkgName,
// defining one package-level []boot.DomainConfig literal named
// varName. The generated code is run through go/parser + go/printer
// before being returned, the same pretty-print-the-generated-AST step
// makelogo.go's genLogoFile pipes its output through, so the emitted
// file always comes out gofmt-clean regardless of how the template
// below is indented.
func Generate(doc *Document, pkgName, varName string) (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, `
package %s

import (
"github.com/rvcore/coresbi/bitmap"
"github.com/rvcore/coresbi/boot"
"github.com/rvcore/coresbi/domain"
)

var %s = []boot.DomainConfig{
`, pkgName, varName)

	for _, d := range doc.Domains {
		fmt.Fprintf(&buf, "{\nDomain: &domain.Domain{\nName: %q,\nRegions: []domain.Region{\n", d.Name)
		for _, r := range d.Regions {
			fmt.Fprintf(&buf, "{Base: 0x%x, Order: %d, Flags: 0x%x},\n", r.Base, r.Order, regionFlags(r.Flags))
		}
		fmt.Fprint(&buf, "},\n},\n")
		fmt.Fprintf(&buf, "PossibleHarts: maskBitmap(0x%x),\n", hartMask(d.PossibleHarts))
		fmt.Fprintf(&buf, "AssignMask: maskBitmap(0x%x),\n", hartMask(d.AssignHarts))
		fmt.Fprint(&buf, "},\n")
	}
	fmt.Fprint(&buf, "}\n")

	fmt.Fprint(&buf, `
func maskBitmap(mask uint64) bitmap.Bitmap64 {
var b bitmap.Bitmap64
for i := uint(0); i < 64; i++ {
if mask&(1<<i) != 0 {
b.Set(i)
}
}
return b
}
`)

	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, "", buf.String(), parser.ParseComments)
	if err != nil {
		return "", fmt.Errorf("domaincfg: generated source failed to parse: %w", err)
	}

	var out bytes.Buffer
	if err := printer.Fprint(&out, fset, astFile); err != nil {
		return "", fmt.Errorf("domaincfg: pretty-printing generated source: %w", err)
	}
	return out.String(), nil
}
