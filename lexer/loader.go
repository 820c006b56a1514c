package lexer

import (
	"path/filepath"

	"filagree/internal/container"
	"filagree/token"
)

// SourceExtension is the fixed extension import resolution appends to a
// bare module name.
const SourceExtension = ".fg"

// Loader resolves `import <name>` directives against a base directory,
// tracking which paths have already been imported so a diamond or
// cyclic import graph is lexed exactly once.
type Loader struct {
	baseDir  string
	imported map[string]bool
}

// NewLoader returns a Loader that resolves imports relative to baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir, imported: make(map[string]bool)}
}

// Load resolves name to a file, and if it has not been imported before,
// reads and recursively lexes it, returning its tokens with the
// trailing EOF stripped so they splice into the importing stream.
// A name already imported returns no tokens and no error.
func (l *Loader) Load(name string) ([]token.Token, error) {
	path := filepath.Join(l.baseDir, name+SourceExtension)
	if l.imported[path] {
		return nil, nil
	}
	l.imported[path] = true

	data, err := container.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sub := New(string(data), l)
	toks, err := sub.Scan()
	if err != nil {
		return nil, err
	}
	if len(toks) > 0 && toks[len(toks)-1].TokenType == token.EOF {
		toks = toks[:len(toks)-1]
	}
	return toks, nil
}
