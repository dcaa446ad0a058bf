// Package source reads the requirements, code and reference material a
// review runs on.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	rcErrors "github.com/cadre-oss/reqcheck/internal/errors"
)

// ReadFile returns the contents of path.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", rcErrors.Wrap(rcErrors.CodeInputMissing, fmt.Sprintf("file not found: %s", path), err)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// ReadPaths reads one or more files or directories. A single file is
// returned verbatim; several files are concatenated, each preceded by a
// "// file: <path>" header. Directories are walked recursively in
// lexical order.
func ReadPaths(paths ...string) (string, error) {
	files, err := expand(paths)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", rcErrors.New(rcErrors.CodeInputMissing, "no source files given")
	}
	if len(files) == 1 {
		return ReadFile(files[0])
	}

	var b strings.Builder
	for i, f := range files {
		content, err := ReadFile(f)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("// file: ")
		b.WriteString(f)
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(content, "\n"))
	}
	return b.String(), nil
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, rcErrors.Wrap(rcErrors.CodeInputMissing, fmt.Sprintf("file not found: %s", p), err)
			}
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasPrefix(d.Name(), ".") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// Retriever supplies extra context for a query, such as reference
// documents related to the requirements.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// NoRetriever returns no context.
type NoRetriever struct{}

func (NoRetriever) Retrieve(context.Context, string) (string, error) {
	return "", nil
}

// DirRetriever returns every document in a directory, verbatim and in
// lexical order. The query is ignored.
type DirRetriever struct {
	Dir string
}

func (r DirRetriever) Retrieve(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.Dir == "" {
		return "", nil
	}
	return ReadPaths(r.Dir)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string) (string, error)

func (f RetrieverFunc) Retrieve(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}
