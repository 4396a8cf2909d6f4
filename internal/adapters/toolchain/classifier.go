package toolchain

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/mbuild/internal/core/domain"
)

// MaxDiagnostics bounds how many diagnostics one linker run can produce,
// children included.
const MaxDiagnostics = 100

var (
	undefinedHeader = regexp.MustCompile(`^Undefined symbols for architecture (\S+):$`)
	undefinedMember = regexp.MustCompile(`^\s+"(.+)", referenced from:$`)
	duplicateHeader = regexp.MustCompile(`^duplicate symbol '?([^']+?)'? in:$`)
	ignoringFile    = regexp.MustCompile(`ignoring file ([^,]+), (?:building for|file was built for|missing required architecture)`)
	duplicateTotal  = regexp.MustCompile(`^ld: \d+ duplicate symbols? for architecture`)
)

var summaryPrefixes = []string{
	"ld: symbol(s) not found for architecture",
	"clang: error: linker command failed",
	"clang++: error: linker command failed",
}

var toolPrefixes = []string{"ld: ", "clang: ", "clang++: ", "warning: ", "error: "}

// Classifier turns linker output into coded diagnostics.
type Classifier struct {
	// CacheDir holds the objects this build produced. Architecture mismatch
	// notices about them are expected slice noise.
	CacheDir string
	Symbols  *domain.SymbolTable
}

type classifyState struct {
	c        *Classifier
	failed   bool
	diags    []*domain.Diagnostic
	count    int
	current  *domain.Diagnostic
	inBlock  blockKind
	complete bool
}

type blockKind int

const (
	blockNone blockKind = iota
	blockUndefined
	blockDuplicate
)

// Classify reads the combined output of a link producing target and returns
// its diagnostics in output order. A failed link always yields at least one
// error.
func (c *Classifier) Classify(output, target string, exitCode int) []*domain.Diagnostic {
	st := &classifyState{c: c, failed: exitCode != 0}
	for line := range strings.Lines(output) {
		if st.complete {
			break
		}
		st.line(strings.TrimRight(line, "\r\n"))
	}

	if st.failed && !hasError(st.diags) {
		// The fallback error takes the place of the last notice when full.
		for st.count >= MaxDiagnostics {
			last := st.diags[len(st.diags)-1]
			st.diags = st.diags[:len(st.diags)-1]
			st.count -= 1 + len(last.Children)
		}
		st.diags = append(st.diags, domain.Errorf(domain.CodeLinkFailed, target, exitCode))
	}
	return st.diags
}

func (st *classifyState) line(line string) {
	if strings.TrimSpace(line) == "" {
		st.inBlock = blockNone
		return
	}

	indented := line[0] == ' ' || line[0] == '\t'
	if indented {
		switch st.inBlock {
		case blockUndefined:
			if m := undefinedMember.FindStringSubmatch(line); m != nil {
				st.add(st.c.undefined(m[1]))
			}
			return
		case blockDuplicate:
			st.current.WithChild(domain.Errorf(domain.CodeDuplicateSymbolSite, strings.TrimSpace(line)))
			st.counted()
			return
		case blockNone:
		}
	}
	st.inBlock = blockNone

	if undefinedHeader.MatchString(line) {
		st.inBlock = blockUndefined
		return
	}
	if m := duplicateHeader.FindStringSubmatch(line); m != nil {
		st.current = domain.Errorf(domain.CodeDuplicateSymbol, m[1])
		st.inBlock = blockDuplicate
		st.add(st.current)
		return
	}
	if m := ignoringFile.FindStringSubmatch(line); m != nil {
		if !st.c.isOwnOutput(m[1]) {
			st.add(domain.Warningf(domain.CodeWrongArchitectureFile, m[1]))
		}
		return
	}
	if isSummary(line) {
		return
	}

	msg := stripToolPrefixes(strings.TrimSpace(line))
	if st.failed {
		st.add(domain.Errorf(domain.CodeLinkError, msg))
	} else {
		st.add(domain.Warningf(domain.CodeLinkWarning, msg))
	}
}

func (st *classifyState) add(d *domain.Diagnostic) {
	st.diags = append(st.diags, d)
	st.counted()
}

func (st *classifyState) counted() {
	st.count++
	if st.count >= MaxDiagnostics {
		st.complete = true
	}
}

func (c *Classifier) undefined(symbol string) *domain.Diagnostic {
	if class, ok := strings.CutPrefix(symbol, domain.ObjCClassPrefix); ok {
		return domain.Errorf(domain.CodeUndefinedObjCClass, class, symbol)
	}
	if s, ok := c.Symbols.Lookup(symbol); ok {
		return domain.Errorf(domain.CodeUndefinedManagedRef, symbol, s.Type, s.Member)
	}
	return domain.Errorf(domain.CodeUndefinedSymbol, symbol)
}

func (c *Classifier) isOwnOutput(path string) bool {
	if c.CacheDir == "" {
		return false
	}
	rel, err := filepath.Rel(c.CacheDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isSummary(line string) bool {
	if duplicateTotal.MatchString(line) {
		return true
	}
	for _, p := range summaryPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func stripToolPrefixes(line string) string {
	for stripped := true; stripped; {
		stripped = false
		for _, p := range toolPrefixes {
			if rest, ok := strings.CutPrefix(line, p); ok {
				line = rest
				stripped = true
			}
		}
	}
	return line
}

func hasError(diags []*domain.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity != domain.SeverityWarning {
			return true
		}
	}
	return false
}
