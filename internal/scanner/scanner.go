/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package scanner

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/ocomsoft/schemasync/internal/errors"
)

// SchemaDir is the directory a module keeps its schema file in
const SchemaDir = "schema"

type SchemaFile struct {
	ModulePath string
	FilePath   string
	Content    string
}

// Options controls which files and modules are scanned
type Options struct {
	SchemaFileName string
	SearchPaths    []string
	IgnoreModules  []string
}

type Scanner struct {
	verbose bool
	options Options
}

func New(verbose bool, options Options) *Scanner {
	if options.SchemaFileName == "" {
		options.SchemaFileName = "schema.yaml"
	}
	return &Scanner{
		verbose: verbose,
		options: options,
	}
}

// ScanModules finds schema files in the direct dependencies listed in
// root/go.mod, then in the module at root itself. Dependencies come first so
// the current module's definitions win when merged.
func (s *Scanner) ScanModules(root string) ([]SchemaFile, error) {
	goModPath := filepath.Join(root, "go.mod")

	goModBytes, err := os.ReadFile(goModPath)
	if os.IsNotExist(err) {
		return nil, errors.NewValidationError("go.mod", "file not found - ensure you're in a Go module directory")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read go.mod: %w", err)
	}

	if len(goModBytes) == 0 {
		return nil, errors.NewValidationError("go.mod", "file is empty")
	}

	modFile, err := modfile.Parse(goModPath, goModBytes, nil)
	if err != nil {
		return nil, errors.NewSchemaParseError(goModPath, 0, fmt.Sprintf("invalid go.mod syntax: %v", err))
	}

	if modFile.Module == nil {
		return nil, errors.NewValidationError("go.mod", "missing module declaration")
	}

	var schemas []SchemaFile

	for _, req := range modFile.Require {
		if req.Indirect {
			continue
		}
		if s.isIgnored(req.Mod.Path) {
			if s.verbose {
				fmt.Printf("Skipping ignored module: %s\n", req.Mod.Path)
			}
			continue
		}

		if s.verbose {
			fmt.Printf("Scanning module: %s@%s\n", req.Mod.Path, req.Mod.Version)
		}

		modPath := s.getModulePath(req.Mod.Path, req.Mod.Version)
		if modPath == "" {
			if s.verbose {
				fmt.Printf("  Module path not found in cache\n")
			}
			continue
		}

		found, err := s.findSchemasInPath(modPath, req.Mod.Path, nil)
		if err != nil {
			if s.verbose {
				fmt.Printf("  Error scanning: %v\n", err)
			}
			continue
		}
		schemas = append(schemas, found...)
	}

	if s.verbose {
		fmt.Printf("Scanning current module %s\n", modFile.Module.Mod.Path)
	}

	gitIgnore := s.loadGitIgnore(root)
	current, err := s.findSchemasInPath(root, modFile.Module.Mod.Path, gitIgnore)
	if err != nil {
		return nil, fmt.Errorf("failed to scan current module: %w", err)
	}
	schemas = append(schemas, current...)

	for _, searchPath := range s.options.SearchPaths {
		if !filepath.IsAbs(searchPath) {
			searchPath = filepath.Join(root, searchPath)
		}
		found, err := s.findFilesInPath(searchPath, modFile.Module.Mod.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search path %s: %w", searchPath, err)
		}
		schemas = appendUnique(schemas, found)
	}

	if s.verbose {
		fmt.Printf("Found %d schema file(s)\n", len(schemas))
	}

	return schemas, nil
}

// findSchemasInPath walks basePath for <SchemaDir>/<SchemaFileName> files
func (s *Scanner) findSchemasInPath(basePath, modulePath string, gitIgnore *ignore.GitIgnore) ([]SchemaFile, error) {
	var schemas []SchemaFile

	err := filepath.WalkDir(basePath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if gitIgnore != nil && p != basePath {
			rel, relErr := filepath.Rel(basePath, p)
			rel = filepath.ToSlash(rel)
			if relErr == nil && (gitIgnore.MatchesPath(rel) || (d.IsDir() && gitIgnore.MatchesPath(rel+"/"))) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.IsDir() {
			if name := d.Name(); p != basePath && (name == ".git" || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != s.options.SchemaFileName || filepath.Base(filepath.Dir(p)) != SchemaDir {
			return nil
		}

		schema, err := s.readSchemaFile(p, modulePath)
		if err != nil {
			return nil
		}
		schemas = append(schemas, *schema)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return schemas, nil
}

// findFilesInPath accepts schema files anywhere under a configured search path
func (s *Scanner) findFilesInPath(basePath, modulePath string) ([]SchemaFile, error) {
	if _, err := os.Stat(basePath); err != nil {
		return nil, err
	}

	var schemas []SchemaFile
	err := filepath.WalkDir(basePath, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != s.options.SchemaFileName {
			return nil
		}
		schema, err := s.readSchemaFile(p, modulePath)
		if err != nil {
			return nil
		}
		schemas = append(schemas, *schema)
		return nil
	})
	return schemas, err
}

func (s *Scanner) readSchemaFile(p, modulePath string) (*SchemaFile, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if s.verbose {
		fmt.Printf("  Found schema at: %s\n", p)
	}
	return &SchemaFile{
		ModulePath: modulePath,
		FilePath:   p,
		Content:    string(content),
	}, nil
}

func (s *Scanner) loadGitIgnore(root string) *ignore.GitIgnore {
	gitIgnore, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gitIgnore
}

// isIgnored matches a module path against the ignore patterns. A pattern
// matches the module itself or, with a trailing /..., everything below it.
func (s *Scanner) isIgnored(modulePath string) bool {
	for _, pattern := range s.options.IgnoreModules {
		if prefix, ok := strings.CutSuffix(pattern, "/..."); ok {
			if modulePath == prefix || strings.HasPrefix(modulePath, prefix+"/") {
				return true
			}
			continue
		}
		if matched, err := path.Match(pattern, modulePath); err == nil && matched {
			return true
		}
	}
	return false
}

func (s *Scanner) getModulePath(modPath, version string) string {
	modCache := os.Getenv("GOMODCACHE")
	if modCache == "" {
		goPath := os.Getenv("GOPATH")
		if goPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return ""
			}
			goPath = filepath.Join(home, "go")
		}
		modCache = filepath.Join(goPath, "pkg", "mod")
	}

	escapedPath, err := module.EscapePath(modPath)
	if err != nil {
		return ""
	}
	escapedVersion, err := module.EscapeVersion(version)
	if err != nil {
		return ""
	}

	cachePath := filepath.Join(modCache, fmt.Sprintf("%s@%s", escapedPath, escapedVersion))
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath
	}

	return ""
}

func appendUnique(schemas, found []SchemaFile) []SchemaFile {
	seen := make(map[string]bool, len(schemas))
	for _, schema := range schemas {
		seen[filepath.Clean(schema.FilePath)] = true
	}
	for _, schema := range found {
		if !seen[filepath.Clean(schema.FilePath)] {
			schemas = append(schemas, schema)
			seen[filepath.Clean(schema.FilePath)] = true
		}
	}
	return schemas
}
