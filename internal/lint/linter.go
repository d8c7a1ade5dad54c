package lint

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	corelint "github.com/lex00/wetwire-core-go/lint"
)

// Type aliases of the core lint contracts.
type (
	// Issue is an alias for corelint.Issue.
	Issue = corelint.Issue
	// Severity is an alias for corelint.Severity.
	Severity = corelint.Severity
	// Rule is an alias for corelint.Rule.
	Rule = corelint.Rule
)

// Severity constants.
const (
	SeverityError   = corelint.SeverityError
	SeverityWarning = corelint.SeverityWarning
	SeverityInfo    = corelint.SeverityInfo
)

// Result contains the outcome of linting.
type Result struct {
	Success bool
	Issues  []Issue
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// IncludeTests lints _test.go files too.
	IncludeTests bool
}

// LintFile lints a single Go file.
func LintFile(path string, opts Options) (Result, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return Result{}, err
	}

	var issues []Issue
	for _, rule := range getRules(opts) {
		issues = append(issues, rule.Check(file, fset)...)
	}
	return newResult(issues), nil
}

// LintPackage lints all Go files in a package directory. A trailing "/..."
// lints every package below the directory.
func LintPackage(pkgPath string, opts Options) (Result, error) {
	if strings.HasSuffix(pkgPath, "...") {
		return lintRecursive(strings.TrimSuffix(strings.TrimSuffix(pkgPath, "..."), "/"), opts)
	}

	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		return Result{}, err
	}

	var issues []Issue
	for _, entry := range entries {
		if entry.IsDir() || !lintable(entry.Name(), opts) {
			continue
		}
		result, err := LintFile(filepath.Join(pkgPath, entry.Name()), opts)
		if err != nil {
			return Result{}, err
		}
		issues = append(issues, result.Issues...)
	}
	return newResult(issues), nil
}

// lintRecursive lints all Go packages below root. Files that do not parse
// are skipped.
func lintRecursive(root string, opts Options) (Result, error) {
	if root == "" {
		root = "."
	}

	var issues []Issue
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !lintable(d.Name(), opts) {
			return nil
		}

		result, err := LintFile(path, opts)
		if err != nil {
			return nil
		}
		issues = append(issues, result.Issues...)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return newResult(issues), nil
}

func lintable(name string, opts Options) bool {
	if !strings.HasSuffix(name, ".go") {
		return false
	}
	return opts.IncludeTests || !strings.HasSuffix(name, "_test.go")
}

func newResult(issues []Issue) Result {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].File != issues[j].File {
			return issues[i].File < issues[j].File
		}
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Column < issues[j].Column
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}
	return Result{Success: success, Issues: issues}
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()
	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// stringValue returns the unquoted value of a string literal.
func stringValue(expr ast.Expr) (string, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	return strings.Trim(lit.Value, "`\""), true
}

func issueAt(fset *token.FileSet, node ast.Node, rule Rule, severity Severity, message, suggestion string) Issue {
	pos := fset.Position(node.Pos())
	return Issue{
		Rule:       rule.ID(),
		Message:    message,
		Suggestion: suggestion,
		File:       pos.Filename,
		Line:       pos.Line,
		Column:     pos.Column,
		Severity:   severity,
	}
}
