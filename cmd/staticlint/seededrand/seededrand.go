// Package seededrand defines an analyzer reporting calls to the package-level
// functions of math/rand and math/rand/v2. They draw from the shared global
// source, so model fitting and tests using them cannot be replayed.
package seededrand

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports uses of the global math/rand source.
var Analyzer = &analysis.Analyzer{
	Name: "seededrand",
	Doc:  "forbids the global math/rand source; use rand.New with an explicit seed",
	Run:  run,
}

var randPackages = map[string]bool{
	"math/rand":    true,
	"math/rand/v2": true,
}

// constructors build explicitly seeded generators and stay allowed.
var constructors = map[string]bool{
	"New":        true,
	"NewSource":  true,
	"NewZipf":    true,
	"NewPCG":     true,
	"NewChaCha8": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
			if !ok || fn.Pkg() == nil || !randPackages[fn.Pkg().Path()] {
				return true
			}
			if sig, ok := fn.Type().(*types.Signature); !ok || sig.Recv() != nil {
				return true
			}
			if constructors[fn.Name()] {
				return true
			}

			pass.Reportf(call.Pos(), "%s.%s uses the global math/rand source", fn.Pkg().Name(), fn.Name())

			return true
		})
	}

	return nil, nil
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
