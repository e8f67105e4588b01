package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/surgeon/internal/config"
	"github.com/gnoswap-labs/surgeon/internal/ir"
	"github.com/gnoswap-labs/surgeon/internal/proofcache"
	"github.com/gnoswap-labs/surgeon/internal/sexpr"
	"github.com/gnoswap-labs/surgeon/surgeon"
)

var desiredExtensions = map[string]bool{
	".lam":  true,
	".sexp": true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}

func extensions() []string {
	out := lo.Keys(desiredExtensions)
	slices.Sort(out)
	return out
}

// labeledTerm is a term and where it came from.
type labeledTerm struct {
	Label string
	Term  ir.Term
}

// collectFiles expands directories into the term files they contain.
// Files given explicitly are kept whatever their extension.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && hasDesiredExtension(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking directory %s: %w", path, err)
		}
	}
	return files, nil
}

// readTerms parses every term of a file. Terms are labeled file:N when a
// file holds more than one.
func readTerms(path string) ([]labeledTerm, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseTerms(path, string(content))
}

func parseTerms(label, source string) ([]labeledTerm, error) {
	terms, err := sexpr.ParseTerms(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%s: no terms", label)
	}

	out := make([]labeledTerm, len(terms))
	for i, t := range terms {
		out[i] = labeledTerm{Label: label, Term: t}
		if len(terms) > 1 {
			out[i].Label = fmt.Sprintf("%s:%d", label, i+1)
		}
	}
	return out, nil
}

// newSurgeon builds a surgeon from the configuration file. The returned
// function releases the proof cache.
func newSurgeon(cfg config.Config) (*surgeon.Surgeon, func(), error) {
	opts := []surgeon.Option{surgeon.WithLogger(logger)}
	closer := func() {}

	if cfg.Cache.Enabled() {
		store, err := proofcache.Open(proofcache.Config{
			Dir:      cfg.Cache.Dir,
			InMemory: cfg.Cache.InMemory,
			MaxAge:   cfg.Cache.MaxAge,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, surgeon.WithCache(store))
		closer = func() {
			if err := store.Close(); err != nil {
				logger.Warn("Error closing proof cache", zap.Error(err))
			}
		}
	}

	s, err := surgeon.FromConfig(cfg, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return s, closer, nil
}
