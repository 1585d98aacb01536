package entities

import (
	"sort"
	"strings"
)

// CheckedFunction pairs an unsafe libc function with its bounds-checked variant
type CheckedFunction struct {
	Unchecked string // e.g. "memcpy"
	Checked   string // e.g. "__memcpy_chk"
}

// CheckedFunctionOf builds the pair for an unchecked function name
func CheckedFunctionOf(unchecked string) CheckedFunction {
	return CheckedFunction{Unchecked: unchecked, Checked: "__" + unchecked + "_chk"}
}

// ParseCheckedName builds the pair from a "__name_chk" symbol. It returns
// false when the name does not follow that pattern.
func ParseCheckedName(checked string) (CheckedFunction, bool) {
	if !IsCheckedName(checked) {
		return CheckedFunction{}, false
	}
	return CheckedFunction{
		Unchecked: checked[2 : len(checked)-4],
		Checked:   checked,
	}, true
}

// IsCheckedName reports whether name is a "__*_chk" function name
func IsCheckedName(name string) bool {
	return len(name) > len("___chk") && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "_chk")
}

// LibcSource tells where a LibcHandle's symbol set came from
type LibcSource string

const (
	// LibcFromFile means the symbols were read from a real library file
	LibcFromFile LibcSource = "file"
	// LibcFromSpec means the symbols were substituted from the catalog
	LibcFromSpec LibcSource = "spec"
)

// LibcHandle is the immutable set of checked functions a C runtime exports.
// It is shared read-only between concurrent analyses.
type LibcHandle struct {
	Source LibcSource
	Path   string   // set for LibcFromFile
	Spec   LibcSpec // set for LibcFromSpec

	checked map[string]CheckedFunction // keyed by unchecked name
}

// NewLibcHandleFromSpec substitutes the catalog entry of spec for a real library
func NewLibcHandleFromSpec(spec LibcSpec) *LibcHandle {
	names := spec.FunctionsWithCheckedVersions()
	h := &LibcHandle{Source: LibcFromSpec, Spec: spec, checked: make(map[string]CheckedFunction, len(names))}
	for _, name := range names {
		h.checked[name] = CheckedFunctionOf(name)
	}
	return h
}

// NewLibcHandleFromExports builds a handle from the checked function names a
// library file exports. Names that are not "__*_chk" are ignored.
func NewLibcHandleFromExports(path string, exported []string) *LibcHandle {
	h := &LibcHandle{Source: LibcFromFile, Path: path, checked: make(map[string]CheckedFunction)}
	for _, name := range exported {
		if fn, ok := ParseCheckedName(name); ok {
			h.checked[fn.Unchecked] = fn
		}
	}
	return h
}

// ExportsChecked reports whether the library exports the checked variant of unchecked
func (h *LibcHandle) ExportsChecked(unchecked string) bool {
	if h == nil {
		return false
	}
	_, ok := h.checked[unchecked]
	return ok
}

// CheckedPairs returns the exported pairs sorted by unchecked name
func (h *LibcHandle) CheckedPairs() []CheckedFunction {
	if h == nil {
		return nil
	}
	pairs := make([]CheckedFunction, 0, len(h.checked))
	for _, fn := range h.checked {
		pairs = append(pairs, fn)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Unchecked < pairs[j].Unchecked })
	return pairs
}

// Describe returns a short human description used in logs
func (h *LibcHandle) Describe() string {
	if h == nil {
		return "(none)"
	}
	if h.Source == LibcFromSpec {
		return h.Spec.String()
	}
	return h.Path
}
