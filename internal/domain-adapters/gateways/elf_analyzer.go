package gateways

import (
	"bytes"
	"context"
	"debug/elf"
	"errors"
	"fmt"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/interfaces/gateways"
	"github.com/ochairo/hardcheck/internal/domain/services"
)

// GNU extensions debug/elf has no names for
const (
	sttGNUIFunc  = elf.STT_LOOS // STT_GNU_IFUNC
	stbGNUUnique = elf.STB_LOOS // STB_GNU_UNIQUE

	df1Now = 0x00000001
	df1PIE = 0x08000000
)

const (
	stackChkFail      = "__stack_chk_fail"
	stackChkFailLocal = "__stack_chk_fail_local"
)

// elfAnalyzer extracts ELF hardening facts with debug/elf over the mapped bytes
type elfAnalyzer struct {
	resolver gateways.LibcResolver
	logger   interfaces.Logger
}

func newELFAnalyzer(resolver gateways.LibcResolver, logger interfaces.Logger) *elfAnalyzer {
	return &elfAnalyzer{resolver: resolver, logger: interfaces.OrNoOp(logger)}
}

// Analyze returns ASLR, STACK-PROT, READ-ONLY-RELOC, IMMEDIATE-BIND and FORTIFY-SOURCE
func (a *elfAnalyzer) Analyze(ctx context.Context, image *entities.BinaryImage) ([]entities.FeatureReport, error) {
	requireFormat(image, image.Format.IsELF(), "ELF")

	f, err := elf.NewFile(bytes.NewReader(image.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w: %w", entities.ErrMalformedBinary, err)
	}

	log := a.logger.With(interfaces.PathField(image.Path))
	facts, err := extractELFFacts(log, f)
	if err != nil {
		return nil, err
	}

	libc := a.resolveLibc(ctx, log, facts)
	return services.EvaluateELF(facts, libc), nil
}

func extractELFFacts(log interfaces.Logger, f *elf.File) (entities.ELFFacts, error) {
	facts := entities.ELFFacts{
		Machine:           uint16(f.Machine),
		ImportedFunctions: make(map[string]struct{}),
	}

	log.Debug("Parsed ELF header", interfaces.F("type", f.Type.String()))
	switch f.Type {
	case elf.ET_EXEC:
		facts.Kind = entities.ELFExecutable
	case elf.ET_DYN:
		facts.Kind = entities.ELFShared
		logPositionIndependence(log, f)
	default:
		facts.Kind = entities.ELFOther
		log.Debug("Position-independence could not be determined")
	}

	for _, prog := range f.Progs {
		if prog.Type == elf.PT_GNU_RELRO {
			facts.HasGNURelro = true
			log.Debug("Found type PT_GNU_RELRO inside program headers")
			break
		}
	}

	bindNow, err := requiresImmediateBinding(f)
	if err != nil {
		return facts, fmt.Errorf("failed to read dynamic section: %w: %w", entities.ErrMalformedBinary, err)
	}
	facts.BindNow = bindNow

	facts.Needed, err = f.ImportedLibraries()
	if err != nil {
		return facts, fmt.Errorf("failed to read DT_NEEDED entries: %w: %w", entities.ErrMalformedBinary, err)
	}

	dynsyms, err := f.DynamicSymbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return facts, fmt.Errorf("failed to read dynamic symbols: %w: %w", entities.ErrMalformedBinary, err)
	}
	providesStackChk := false
	for _, sym := range dynsyms {
		if sym.Name == "" || !isFunctionSymbol(sym) {
			continue
		}
		if sym.Name == stackChkFail {
			// Only an undefined reference means the code calls the handler.
			if sym.Section == elf.SHN_UNDEF {
				facts.StackChkUsed = true
			} else {
				providesStackChk = true
			}
		}
		if isImportedFunction(sym) {
			facts.ImportedFunctions[sym.Name] = struct{}{}
		}
	}

	if facts.StackChkUsed {
		log.Debug("Found function symbol __stack_chk_fail inside dynamic symbols")
		return facts, nil
	}
	if providesStackChk {
		log.Debug("Binary defines __stack_chk_fail itself")
		return facts, nil
	}

	// Statically linked binaries only carry the reference in .symtab.
	found, err := symtabReferencesStackChk(f)
	if err != nil {
		return facts, err
	}
	if found {
		facts.StackChkUsed = true
		log.Debug("Found function symbol __stack_chk_fail inside symbol table")
	}
	return facts, nil
}

func logPositionIndependence(log interfaces.Logger, f *elf.File) {
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_PHDR {
			log.Debug("Found type PT_PHDR inside program headers")
			return
		}
	}

	flags, err := f.DynValue(elf.DT_FLAGS_1)
	if err == nil {
		for _, fl := range flags {
			if fl&df1PIE != 0 {
				log.Debug("Bit DF_1_PIE is set in tag DT_FLAGS_1")
				return
			}
		}
	}
	log.Debug("Binary is a shared library")
}

func (a *elfAnalyzer) resolveLibc(ctx context.Context, log interfaces.Logger, facts entities.ELFFacts) *entities.LibcHandle {
	if a.resolver == nil {
		return nil
	}

	libc, err := a.resolver.Resolve(ctx, facts.Needed, elf.Machine(facts.Machine))
	if err != nil {
		log.Debug("FORTIFY-SOURCE cannot be decided", interfaces.ErrField(err))
		return nil
	}
	log.Debug("Resolved C runtime library", interfaces.F("libc", libc.Describe()))

	if libc.Source == entities.LibcFromFile {
		for name := range facts.ImportedFunctions {
			fn, ok := entities.ParseCheckedName(name)
			if ok && !libc.ExportsChecked(fn.Unchecked) {
				log.Warn("Checked function is not exported by the C runtime library, this might indicate a C runtime mismatch",
					interfaces.F("function", name),
					interfaces.F("libc", libc.Describe()))
			}
		}
	}
	return libc
}

// requiresImmediateBinding looks for DT_BIND_NOW, DF_BIND_NOW and DF_1_NOW
func requiresImmediateBinding(f *elf.File) (bool, error) {
	bindNow, err := f.DynValue(elf.DT_BIND_NOW)
	if err != nil {
		return false, err
	}
	if len(bindNow) > 0 {
		return true, nil
	}

	flags, err := f.DynValue(elf.DT_FLAGS)
	if err != nil {
		return false, err
	}
	for _, fl := range flags {
		if fl&uint64(elf.DF_BIND_NOW) != 0 {
			return true, nil
		}
	}

	flags1, err := f.DynValue(elf.DT_FLAGS_1)
	if err != nil {
		return false, err
	}
	for _, fl := range flags1 {
		if fl&df1Now != 0 {
			return true, nil
		}
	}
	return false, nil
}

// symtabReferencesStackChk reports whether .symtab names a stack protector
// failure handler. A missing .symtab is not an error.
func symtabReferencesStackChk(f *elf.File) (bool, error) {
	syms, err := f.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read symbol table: %w: %w", entities.ErrMalformedBinary, err)
	}

	for _, sym := range syms {
		typ := elf.ST_TYPE(sym.Info)
		if typ != elf.STT_FUNC && typ != sttGNUIFunc && typ != elf.STT_NOTYPE {
			continue
		}
		if sym.Name == stackChkFail || sym.Name == stackChkFailLocal {
			return true, nil
		}
	}
	return false, nil
}

func isFunctionSymbol(sym elf.Symbol) bool {
	typ := elf.ST_TYPE(sym.Info)
	return typ == elf.STT_FUNC || typ == sttGNUIFunc
}

func isGlobalBinding(sym elf.Symbol) bool {
	bind := elf.ST_BIND(sym.Info)
	return bind == elf.STB_GLOBAL || bind == elf.STB_WEAK || bind == stbGNUUnique
}

// isImportedFunction matches undefined global function references
func isImportedFunction(sym elf.Symbol) bool {
	return isFunctionSymbol(sym) && isGlobalBinding(sym) && sym.Value == 0
}

// isExportedFunction matches defined, default-visibility global functions
func isExportedFunction(sym elf.Symbol) bool {
	return isFunctionSymbol(sym) &&
		isGlobalBinding(sym) &&
		sym.Value != 0 &&
		elf.ST_VISIBILITY(sym.Other) == elf.STV_DEFAULT
}
