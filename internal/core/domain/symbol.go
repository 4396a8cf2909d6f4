package domain

import "strings"

// SymbolKind says where a native symbol comes from.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolObjCClass
	SymbolField
)

// Symbol is a native symbol required by managed code.
type Symbol struct {
	Name string
	Kind SymbolKind
	// Type and Member identify the managed member referencing the symbol.
	Type   string
	Member string
}

// ObjCClassPrefix prefixes Objective-C class symbols.
const ObjCClassPrefix = "_OBJC_CLASS_$_"

// SymbolTable indexes symbols by their native name.
type SymbolTable struct {
	byName map[string]Symbol
}

// NewSymbolTable builds a table from symbols. Names are stored without the
// leading underscore the linker adds.
func NewSymbolTable(symbols []Symbol) *SymbolTable {
	t := &SymbolTable{byName: make(map[string]Symbol, len(symbols))}
	for _, s := range symbols {
		t.byName[strings.TrimPrefix(s.Name, "_")] = s
	}
	return t
}

// Lookup finds a symbol by the name the linker reported.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	if t == nil {
		return Symbol{}, false
	}
	s, ok := t.byName[strings.TrimPrefix(name, "_")]
	return s, ok
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}
