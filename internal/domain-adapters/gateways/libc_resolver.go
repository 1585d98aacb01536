package gateways

import (
	"bytes"
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/interfaces/gateways"
)

// libcNamePattern matches DT_NEEDED entries naming a C runtime, e.g. "libc.so.6" or "libbionic.so"
var libcNamePattern = regexp.MustCompile(`(?i)\blib(c|bionic)\b[^/]+$`)

var conventionalLibDirs = []string{"/lib", "/usr/lib", "/lib64", "/usr/lib64", "/lib32", "/usr/lib32"}

// Debian multiarch triplets per machine
var multiarchTriplets = map[elf.Machine][]string{
	elf.EM_X86_64:  {"x86_64-linux-gnu", "x86_64-linux-gnux32"},
	elf.EM_386:     {"i386-linux-gnu", "i686-linux-gnu"},
	elf.EM_AARCH64: {"aarch64-linux-gnu"},
	elf.EM_ARM:     {"arm-linux-gnueabihf", "arm-linux-gnueabi"},
	elf.EM_PPC64:   {"powerpc64le-linux-gnu", "powerpc64-linux-gnu"},
	elf.EM_PPC:     {"powerpc-linux-gnu"},
	elf.EM_RISCV:   {"riscv64-linux-gnu"},
	elf.EM_S390:    {"s390x-linux-gnu"},
	elf.EM_MIPS:    {"mips-linux-gnu", "mipsel-linux-gnu", "mips64el-linux-gnuabi64", "mips64-linux-gnuabi64"},
}

type libcKey struct {
	name    string
	machine elf.Machine
}

type libcEntry struct {
	once   sync.Once
	handle *entities.LibcHandle
	err    error
}

// LibcResolverGateway resolves the C runtime of ELF binaries under one run-wide
// strategy. Results are computed once per (library, machine) and shared.
type LibcResolverGateway struct {
	config entities.LibcConfig
	loader gateways.ImageLoader
	logger interfaces.Logger
	spec   *entities.LibcHandle

	mu      sync.Mutex
	entries map[libcKey]*libcEntry
}

// NewLibcResolverGateway validates config and creates a resolver. loader maps
// candidate library files.
func NewLibcResolverGateway(config entities.LibcConfig, loader gateways.ImageLoader, logger interfaces.Logger) (*LibcResolverGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &LibcResolverGateway{
		config:  config,
		loader:  loader,
		logger:  interfaces.OrNoOp(logger),
		entries: make(map[libcKey]*libcEntry),
	}
	if config.Mode == entities.LibcModeSpec {
		r.spec = entities.NewLibcHandleFromSpec(config.Spec)
	}
	return r, nil
}

// Resolve returns the C runtime handle for a binary with the given DT_NEEDED list and machine
func (r *LibcResolverGateway) Resolve(ctx context.Context, needed []string, machine elf.Machine) (*entities.LibcHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch r.config.Mode {
	case entities.LibcModeNone:
		return nil, entities.ErrLibcDisabled
	case entities.LibcModeSpec:
		return r.spec, nil
	case entities.LibcModePath:
		path := r.config.Path
		return r.cached(libcKey{name: path, machine: machine}, func() (*entities.LibcHandle, error) {
			return r.load(path, machine)
		})
	case entities.LibcModeAuto, entities.LibcModeSysroot:
		return r.resolveNeeded(needed, machine)
	default:
		return nil, fmt.Errorf("unknown libc mode %q", r.config.Mode)
	}
}

func (r *LibcResolverGateway) resolveNeeded(needed []string, machine elf.Machine) (*entities.LibcHandle, error) {
	root := string(filepath.Separator)
	if r.config.Mode == entities.LibcModeSysroot {
		root = r.config.Sysroot
	}

	for _, name := range needed {
		if !libcNamePattern.MatchString(name) {
			continue
		}
		handle, err := r.cached(libcKey{name: name, machine: machine}, func() (*entities.LibcHandle, error) {
			return r.search(root, name, machine)
		})
		if err == nil {
			return handle, nil
		}
		if !errors.Is(err, entities.ErrLibcNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no C runtime library in %v: %w", needed, entities.ErrLibcNotFound)
}

func (r *LibcResolverGateway) cached(key libcKey, resolve func() (*entities.LibcHandle, error)) (*entities.LibcHandle, error) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &libcEntry{}
		r.entries[key] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.handle, entry.err = resolve()
	})
	return entry.handle, entry.err
}

// search probes the library directories below root for name
func (r *LibcResolverGateway) search(root, name string, machine elf.Machine) (*entities.LibcHandle, error) {
	for _, dir := range libraryDirs(machine) {
		candidate := filepath.Join(root, dir, name)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}

		handle, err := r.load(candidate, machine)
		if err != nil {
			r.logger.Debug("Rejected C runtime library candidate", interfaces.F("candidate", candidate), interfaces.ErrField(err))
			continue
		}
		return handle, nil
	}
	return nil, fmt.Errorf("%s below %s: %w", name, root, entities.ErrLibcNotFound)
}

// load maps a library file and collects the checked functions it exports
func (r *LibcResolverGateway) load(path string, machine elf.Machine) (*entities.LibcHandle, error) {
	image, err := r.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load C runtime library %s: %w", path, err)
	}
	defer func() {
		if cerr := image.Close(); cerr != nil {
			r.logger.Warn("Failed to release C runtime library mapping", interfaces.PathField(path), interfaces.ErrField(cerr))
		}
	}()

	f, err := elf.NewFile(bytes.NewReader(image.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse C runtime library %s: %w: %w", path, entities.ErrMalformedBinary, err)
	}
	if f.Machine != machine {
		r.logger.Warn("C runtime library architecture does not match the binary",
			interfaces.PathField(path),
			interfaces.F("library_machine", f.Machine.String()),
			interfaces.F("binary_machine", machine.String()))
		return nil, fmt.Errorf("%s is built for %s: %w", path, f.Machine, entities.ErrLibcNotFound)
	}

	syms, err := f.DynamicSymbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbols of %s: %w: %w", path, entities.ErrMalformedBinary, err)
	}

	var exported []string
	for _, sym := range syms {
		if isExportedFunction(sym) && entities.IsCheckedName(sym.Name) {
			exported = append(exported, sym.Name)
		}
	}

	handle := entities.NewLibcHandleFromExports(path, exported)
	r.logger.Debug("Loaded C runtime library",
		interfaces.PathField(path),
		interfaces.F("checked_functions", len(handle.CheckedPairs())))
	return handle, nil
}

func libraryDirs(machine elf.Machine) []string {
	triplets := multiarchTriplets[machine]
	dirs := make([]string, 0, 2*len(triplets)+len(conventionalLibDirs))
	for _, t := range triplets {
		dirs = append(dirs, "/lib/"+t, "/usr/lib/"+t)
	}
	return append(dirs, conventionalLibDirs...)
}
