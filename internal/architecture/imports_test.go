package architecture_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/mod/modfile"
)

// importEdge is one import statement found under internal/.
type importEdge struct {
	file string // module-relative, slash separated
	imp  string
}

func TestImportBoundaries(t *testing.T) {
	modulePath, edges := scanInternalImports(t)

	var bad []string
	for _, e := range edges {
		for _, rule := range disallowedImports(modulePath, layerFor(e.file)) {
			if strings.HasPrefix(e.imp, rule) {
				bad = append(bad, fmt.Sprintf("- %s imports %q (disallowed: %q)", e.file, e.imp, rule))
				break
			}
		}
	}
	if len(bad) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(bad, "\n"))
	}
}

// Concrete clients (redis today) are chosen in internal/app; everything else
// depends on the interfaces they satisfy.
func TestClientsOnlyImportedByApp(t *testing.T) {
	modulePath, edges := scanInternalImports(t)
	clients := modulePath + "/internal/clients/"

	var bad []string
	for _, e := range edges {
		if strings.HasPrefix(e.file, "internal/app/") || strings.HasPrefix(e.file, "internal/clients/") {
			continue
		}
		if strings.HasPrefix(e.imp, clients) {
			bad = append(bad, fmt.Sprintf("- %s imports %q", e.file, e.imp))
		}
	}
	if len(bad) > 0 {
		t.Fatalf("internal/clients imported outside internal/app:\n%s", strings.Join(bad, "\n"))
	}
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/platform/"), strings.HasPrefix(rel, "internal/pkg/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/domain/"):
		return "domain"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/normalize/"), strings.HasPrefix(rel, "internal/prompts/"):
		return "llmkit"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/jobs/"):
		return "jobs"
	case strings.HasPrefix(rel, "internal/http/"):
		return "http"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	internal := func(names ...string) []string {
		out := make([]string, 0, len(names))
		for _, n := range names {
			out = append(out, modulePath+"/internal/"+n)
		}
		return out
	}
	switch layer {
	case "platform":
		return internal("domain", "data/", "services", "http/", "jobs", "app")
	case "domain":
		return internal("data/", "services", "http/", "jobs", "app", "platform/llm")
	case "data":
		return internal("services", "http/", "jobs", "app")
	case "llmkit":
		return internal("data/", "services", "http/", "jobs", "app")
	case "services":
		return internal("http/", "jobs", "app")
	case "jobs":
		return internal("services", "http/", "app")
	case "http":
		return internal("data/", "jobs", "app")
	default:
		return nil
	}
}

func scanInternalImports(t *testing.T) (string, []importEdge) {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(wd)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	modulePath := modfile.ModulePath(raw)
	if modulePath == "" {
		t.Fatalf("module path not found in go.mod")
	}

	fset := token.NewFileSet()
	var edges []importEdge
	err = filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			edges = append(edges, importEdge{file: filepath.ToSlash(rel), imp: imp})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
	return modulePath, edges
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}
