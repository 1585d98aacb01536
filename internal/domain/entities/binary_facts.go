package entities

// ELFObjectKind is the reduced ELF header type
type ELFObjectKind int

// ELF object kinds relevant to position independence
const (
	ELFOther      ELFObjectKind = iota // ET_REL, ET_CORE, processor specific
	ELFExecutable                      // ET_EXEC
	ELFShared                          // ET_DYN, shared library or PIE
)

// ELFFacts is what the ELF analyzer extracts from a file before any decision is made
type ELFFacts struct {
	Kind         ELFObjectKind
	Machine      uint16
	HasGNURelro  bool // PT_GNU_RELRO program header
	BindNow      bool // DT_BIND_NOW, DF_BIND_NOW or DF_1_NOW
	StackChkUsed bool // __stack_chk_fail referenced

	// ImportedFunctions holds the undefined dynamic function symbols
	ImportedFunctions map[string]struct{}
	// Needed is the DT_NEEDED list
	Needed []string
}

// Imports reports whether name is an imported function
func (f ELFFacts) Imports(name string) bool {
	_, ok := f.ImportedFunctions[name]
	return ok
}

// ChecksumState is the outcome of recomputing a PE image checksum
type ChecksumState int

// Checksum states
const (
	ChecksumUnverified ChecksumState = iota
	ChecksumMatches
	ChecksumMismatch
)

// PELoadConfig holds the Load Config Directory fields the analyzer needs
type PELoadConfig struct {
	Size           uint32
	HasSEHandlers  bool // Size covers SEHandlerCount
	SEHandlerCount uint64
	HasGuardFlags  bool // Size covers GuardFlags
	GuardFlags     uint32
}

// PEFacts is what the PE analyzer extracts from a file before any decision is made
type PEFacts struct {
	Is64 bool

	// COFF header characteristics
	RelocsStripped    bool
	LargeAddressAware bool

	// Optional header DllCharacteristics
	HighEntropyVA  bool
	DynamicBase    bool
	ForceIntegrity bool
	NXCompat       bool
	NoIsolation    bool
	NoSEH          bool
	AppContainer   bool
	GuardCF        bool

	CheckSum      uint32
	ChecksumState ChecksumState

	HasCertificate      bool
	HasManifestResource bool

	LoadConfig *PELoadConfig // nil when absent or unparsable
}
