package gateways

import (
	"debug/pe"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// loadConfigLayout holds IMAGE_LOAD_CONFIG_DIRECTORY field offsets. The
// pointer-sized fields before them make the two layouts diverge.
type loadConfigLayout struct {
	seHandlerCount     int
	seHandlerCountSize int
	guardFlags         int
}

var (
	loadConfigLayout32 = loadConfigLayout{seHandlerCount: 0x44, seHandlerCountSize: 4, guardFlags: 0x58}
	loadConfigLayout64 = loadConfigLayout{seHandlerCount: 0x68, seHandlerCountSize: 8, guardFlags: 0x90}
)

const (
	rtManifest             = 24 // RT_MANIFEST resource type
	resourceDirHeaderSize  = 16
	resourceDirEntrySize   = 8
	resourceNameIsString   = 0x80000000
	optionalHeaderChecksum = 64 // CheckSum offset inside the optional header
)

// rvaToOffset maps a relative virtual address to a file offset through the section table
func rvaToOffset(f *pe.File, rva uint32) (int, bool) {
	for _, s := range f.Sections {
		if rva >= s.VirtualAddress && rva-s.VirtualAddress < s.Size {
			return int(s.Offset) + int(rva-s.VirtualAddress), true
		}
	}
	return 0, false
}

// readLoadConfig decodes the Load Config Directory fields used by the
// CONTROL-FLOW-GUARD and SAFE-SEH checks. It returns nil when the directory
// is absent or does not map into the file.
func readLoadConfig(data []byte, f *pe.File, dir pe.DataDirectory, is64 bool) *entities.PELoadConfig {
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil
	}
	off, ok := rvaToOffset(f, dir.VirtualAddress)
	if !ok {
		return nil
	}
	size, ok := readUint[uint32](data, off)
	if !ok {
		return nil
	}

	layout := loadConfigLayout32
	if is64 {
		layout = loadConfigLayout64
	}
	covers := func(fieldOff, fieldSize int) bool {
		return fieldOff+fieldSize <= int(size)
	}

	lc := &entities.PELoadConfig{Size: size}
	if covers(layout.seHandlerCount, layout.seHandlerCountSize) {
		if is64 {
			lc.SEHandlerCount, lc.HasSEHandlers = readUint[uint64](data, off+layout.seHandlerCount)
		} else {
			var count uint32
			count, lc.HasSEHandlers = readUint[uint32](data, off+layout.seHandlerCount)
			lc.SEHandlerCount = uint64(count)
		}
	}
	if covers(layout.guardFlags, 4) {
		lc.GuardFlags, lc.HasGuardFlags = readUint[uint32](data, off+layout.guardFlags)
	}
	return lc
}

// hasManifestResource scans the root resource directory for an RT_MANIFEST entry
func hasManifestResource(data []byte, f *pe.File, dir pe.DataDirectory) bool {
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return false
	}
	off, ok := rvaToOffset(f, dir.VirtualAddress)
	if !ok {
		return false
	}
	named, ok := readUint[uint16](data, off+12)
	if !ok {
		return false
	}
	ids, ok := readUint[uint16](data, off+14)
	if !ok {
		return false
	}

	// Named entries come first, ID entries follow.
	entries := off + resourceDirHeaderSize
	for i := int(named); i < int(named)+int(ids); i++ {
		id, ok := readUint[uint32](data, entries+i*resourceDirEntrySize)
		if !ok {
			return false
		}
		if id&resourceNameIsString == 0 && id == rtManifest {
			return true
		}
	}
	return false
}

// imageChecksum recomputes the PE image checksum the way the Windows loader
// does: a folded 16-bit one's complement sum of the file with the CheckSum
// field treated as zero, plus the file length.
func imageChecksum(data []byte, checksumOff int) uint32 {
	var sum uint64
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		if i >= checksumOff && i < checksumOff+4 {
			continue
		}
		sum += uint64(data[i]) | uint64(data[i+1])<<8
		sum = (sum & 0xffff) + (sum >> 16)
	}
	if n%2 == 1 {
		sum += uint64(data[n-1])
		sum = (sum & 0xffff) + (sum >> 16)
	}
	sum = (sum & 0xffff) + (sum >> 16)
	return uint32(sum) + uint32(n)
}

// checksumOffset returns the file offset of the optional header CheckSum field
func checksumOffset(data []byte) (int, bool) {
	lfanew, ok := readUint[uint32](data, dosLfanewOffset)
	if !ok {
		return 0, false
	}
	off := int(lfanew) + len(peSignature) + coffHeaderSize + optionalHeaderChecksum
	if _, ok := readUint[uint32](data, off); !ok {
		return 0, false
	}
	return off, true
}
