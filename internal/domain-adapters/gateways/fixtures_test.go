package gateways

import (
	"bytes"
	"context"
	"debug/elf"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
)

// Synthetic ELF, PE, COFF and ar images built in memory so no binaries are committed.

type elfSymbol struct {
	name  string
	info  byte
	other byte
	shndx uint16
	value uint64
}

func importedFunc(name string) elfSymbol {
	return elfSymbol{name: name, info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC)}
}

func exportedFunc(name string) elfSymbol {
	return elfSymbol{name: name, info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), shndx: 1, value: 0x1000}
}

type elfDyn struct {
	tag elf.DynTag
	val uint64
}

type elfFixture struct {
	typ     elf.Type
	machine elf.Machine
	relro   bool
	phdr    bool
	static  bool // no dynamic sections
	needed  []string
	dynamic []elfDyn
	dynsyms []elfSymbol
	symtab  []elfSymbol // nil means no .symtab
}

type strtab struct {
	buf bytes.Buffer
}

func newStrtab() *strtab {
	s := &strtab{}
	s.buf.WriteByte(0)
	return s
}

func (s *strtab) add(name string) uint32 {
	off := uint32(s.buf.Len())
	s.buf.WriteString(name)
	s.buf.WriteByte(0)
	return off
}

func mustWrite(t testing.TB, w *bytes.Buffer, v any) {
	t.Helper()
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
}

func symbolTable(t testing.TB, syms []elfSymbol, names *strtab) []byte {
	t.Helper()
	var buf bytes.Buffer
	mustWrite(t, &buf, elf.Sym64{})
	for _, s := range syms {
		mustWrite(t, &buf, elf.Sym64{
			Name:  names.add(s.name),
			Info:  s.info,
			Other: s.other,
			Shndx: s.shndx,
			Value: s.value,
		})
	}
	return buf.Bytes()
}

// buildELF64 lays out header, program headers, section data and section
// headers in that order.
func buildELF64(t testing.TB, fx elfFixture) []byte {
	t.Helper()

	type section struct {
		hdr  elf.Section64
		data []byte
	}
	shstr := newStrtab()
	sections := []*section{{}}
	add := func(name string, typ elf.SectionType, data []byte, entsize uint64, link uint32) uint32 {
		sections = append(sections, &section{
			hdr: elf.Section64{
				Name:      shstr.add(name),
				Type:      uint32(typ),
				Link:      link,
				Addralign: 8,
				Entsize:   entsize,
			},
			data: data,
		})
		return uint32(len(sections) - 1)
	}

	if !fx.static {
		dynstr := newStrtab()
		var dyn bytes.Buffer
		for _, n := range fx.needed {
			mustWrite(t, &dyn, elf.Dyn64{Tag: int64(elf.DT_NEEDED), Val: uint64(dynstr.add(n))})
		}
		for _, d := range fx.dynamic {
			mustWrite(t, &dyn, elf.Dyn64{Tag: int64(d.tag), Val: d.val})
		}
		mustWrite(t, &dyn, elf.Dyn64{Tag: int64(elf.DT_NULL)})
		dynsym := symbolTable(t, fx.dynsyms, dynstr)

		// .dynstr is filled by the tables above, so it is added last but linked by index.
		dynstrIdx := uint32(len(sections) + 2)
		add(".dynsym", elf.SHT_DYNSYM, dynsym, 24, dynstrIdx)
		add(".dynamic", elf.SHT_DYNAMIC, dyn.Bytes(), 16, dynstrIdx)
		add(".dynstr", elf.SHT_STRTAB, dynstr.buf.Bytes(), 0, 0)
	}
	if fx.symtab != nil {
		names := newStrtab()
		syms := symbolTable(t, fx.symtab, names)
		strIdx := uint32(len(sections) + 1)
		add(".symtab", elf.SHT_SYMTAB, syms, 24, strIdx)
		add(".strtab", elf.SHT_STRTAB, names.buf.Bytes(), 0, 0)
	}
	shstrIdx := add(".shstrtab", elf.SHT_STRTAB, nil, 0, 0)
	sections[shstrIdx].data = shstr.buf.Bytes()

	var progs []elf.Prog64
	if fx.phdr {
		progs = append(progs, elf.Prog64{Type: uint32(elf.PT_PHDR), Flags: uint32(elf.PF_R)})
	}
	if fx.relro {
		progs = append(progs, elf.Prog64{Type: uint32(elf.PT_GNU_RELRO), Flags: uint32(elf.PF_R)})
	}

	const ehsize, phentsize, shentsize = 64, 56, 64
	off := uint64(ehsize + phentsize*len(progs))
	for _, s := range sections[1:] {
		off = (off + 7) &^ 7
		s.hdr.Off = off
		s.hdr.Size = uint64(len(s.data))
		off += s.hdr.Size
	}
	shoff := (off + 7) &^ 7

	hdr := elf.Header64{
		Type:      uint16(fx.typ),
		Machine:   uint16(fx.machine),
		Version:   uint32(elf.EV_CURRENT),
		Shoff:     shoff,
		Ehsize:    ehsize,
		Phentsize: phentsize,
		Phnum:     uint16(len(progs)),
		Shentsize: shentsize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  uint16(shstrIdx),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	if len(progs) > 0 {
		hdr.Phoff = ehsize
	}

	var buf bytes.Buffer
	mustWrite(t, &buf, hdr)
	for _, p := range progs {
		mustWrite(t, &buf, p)
	}
	for _, s := range sections[1:] {
		pad(&buf, int(s.hdr.Off))
		buf.Write(s.data)
	}
	pad(&buf, int(shoff))
	for _, s := range sections {
		mustWrite(t, &buf, s.hdr)
	}
	return buf.Bytes()
}

func pad(buf *bytes.Buffer, to int) {
	for buf.Len() < to {
		buf.WriteByte(0)
	}
}

type loadConfigFixture struct {
	size           uint32 // 0 means large enough for every field
	seHandlerCount uint64
	guardFlags     uint32
}

type peFixture struct {
	is64          bool
	chars         uint16
	dllChars      uint16
	validChecksum bool
	checksum      uint32 // stored as-is when validChecksum is false
	cert          bool
	manifest      bool
	loadConfig    *loadConfigFixture
}

const (
	peSectionVA     = 0x1000
	peSectionOffset = 0x200
	peSectionSize   = 0x200
	peResourceRVA   = peSectionVA + 0x100
	peCertOffset    = peSectionOffset + peSectionSize
)

// buildPE produces a PE32 or PE32+ image with one .rdata section holding the
// load config directory and the root resource directory.
func buildPE(t testing.TB, fx peFixture) []byte {
	t.Helper()

	var dirs [16]pe.DataDirectory
	section := make([]byte, peSectionSize)

	if lc := fx.loadConfig; lc != nil {
		layout, full := loadConfigLayout32, uint32(0x5c)
		if fx.is64 {
			layout, full = loadConfigLayout64, 0x94
		}
		size := lc.size
		if size == 0 {
			size = full
		}
		binary.LittleEndian.PutUint32(section[0:], size)
		if fx.is64 {
			binary.LittleEndian.PutUint64(section[layout.seHandlerCount:], lc.seHandlerCount)
		} else {
			binary.LittleEndian.PutUint32(section[layout.seHandlerCount:], uint32(lc.seHandlerCount))
		}
		binary.LittleEndian.PutUint32(section[layout.guardFlags:], lc.guardFlags)
		dirs[pe.IMAGE_DIRECTORY_ENTRY_LOAD_CONFIG] = pe.DataDirectory{VirtualAddress: peSectionVA, Size: size}
	}
	if fx.manifest {
		root := section[peResourceRVA-peSectionVA:]
		binary.LittleEndian.PutUint16(root[14:], 1)
		binary.LittleEndian.PutUint32(root[16:], rtManifest)
		binary.LittleEndian.PutUint32(root[20:], 0x80000018)
		dirs[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE] = pe.DataDirectory{VirtualAddress: peResourceRVA, Size: 0x30}
	}
	if fx.cert {
		dirs[pe.IMAGE_DIRECTORY_ENTRY_SECURITY] = pe.DataDirectory{VirtualAddress: peCertOffset, Size: 8}
	}

	fh := pe.FileHeader{
		Machine:          pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections: 1,
		Characteristics:  fx.chars | pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	}
	var opt any
	if fx.is64 {
		fh.Machine = pe.IMAGE_FILE_MACHINE_AMD64
		fh.SizeOfOptionalHeader = 240
		opt = &pe.OptionalHeader64{
			Magic:               peOptMagicPE32Plus,
			ImageBase:           0x140000000,
			SectionAlignment:    0x1000,
			FileAlignment:       0x200,
			SizeOfImage:         0x2000,
			SizeOfHeaders:       0x200,
			CheckSum:            fx.checksum,
			Subsystem:           pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
			DllCharacteristics:  fx.dllChars,
			NumberOfRvaAndSizes: 16,
			DataDirectory:       dirs,
		}
	} else {
		fh.SizeOfOptionalHeader = 224
		opt = &pe.OptionalHeader32{
			Magic:               peOptMagicPE32,
			ImageBase:           0x400000,
			SectionAlignment:    0x1000,
			FileAlignment:       0x200,
			SizeOfImage:         0x2000,
			SizeOfHeaders:       0x200,
			CheckSum:            fx.checksum,
			Subsystem:           pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
			DllCharacteristics:  fx.dllChars,
			NumberOfRvaAndSizes: 16,
			DataDirectory:       dirs,
		}
	}

	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[dosLfanewOffset:], 0x40)
	buf.Write(dos)
	buf.Write(peSignature)
	mustWrite(t, &buf, fh)
	mustWrite(t, &buf, opt)

	var name [8]uint8
	copy(name[:], ".rdata")
	mustWrite(t, &buf, pe.SectionHeader32{
		Name:             name,
		VirtualSize:      peSectionSize,
		VirtualAddress:   peSectionVA,
		SizeOfRawData:    peSectionSize,
		PointerToRawData: peSectionOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ,
	})
	pad(&buf, peSectionOffset)
	buf.Write(section)
	if fx.cert {
		buf.Write([]byte{8, 0, 0, 0, 0, 2, 2, 0})
	}

	data := buf.Bytes()
	if fx.validChecksum {
		off, ok := checksumOffset(data)
		if !ok {
			t.Fatal("checksum field out of range")
		}
		binary.LittleEndian.PutUint32(data[off:], imageChecksum(data, off))
	}
	return data
}

// buildCOFFObject produces a raw COFF object whose symbol table lists names
func buildCOFFObject(t testing.TB, names ...string) []byte {
	t.Helper()

	var (
		syms    bytes.Buffer
		strings bytes.Buffer
	)
	for _, n := range names {
		var sym pe.COFFSymbol
		if len(n) <= 8 {
			copy(sym.Name[:], n)
		} else {
			binary.LittleEndian.PutUint32(sym.Name[4:], uint32(4+strings.Len()))
			strings.WriteString(n)
			strings.WriteByte(0)
		}
		sym.StorageClass = 2 // IMAGE_SYM_CLASS_EXTERNAL
		mustWrite(t, &syms, sym)
	}

	var buf bytes.Buffer
	mustWrite(t, &buf, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		PointerToSymbolTable: 20,
		NumberOfSymbols:      uint32(len(names)),
	})
	buf.Write(syms.Bytes())
	mustWrite(t, &buf, uint32(4+strings.Len()))
	buf.Write(strings.Bytes())
	return buf.Bytes()
}

type arFile struct {
	name string
	data []byte
}

func arHeader(name string, size int) string {
	return fmt.Sprintf("%-16s%-12s%-6s%-6s%-8s%-10d`\n", name, "0", "0", "0", "644", size)
}

// buildGNUArchive writes a GNU archive with an empty symbol table and a
// long-name table for names over 15 bytes.
func buildGNUArchive(members ...arFile) []byte {
	var buf, longNames bytes.Buffer
	buf.Write(arMagic)
	writeMember := func(name string, data []byte) {
		buf.WriteString(arHeader(name, len(data)))
		buf.Write(data)
		if len(data)%2 == 1 {
			buf.WriteByte('\n')
		}
	}

	names := make([]string, len(members))
	for i, m := range members {
		if len(m.name) > 15 {
			names[i] = fmt.Sprintf("/%d", longNames.Len())
			longNames.WriteString(m.name + "/\n")
		} else {
			names[i] = m.name + "/"
		}
	}

	writeMember("/", make([]byte, 4))
	if longNames.Len() > 0 {
		writeMember("//", longNames.Bytes())
	}
	for i, m := range members {
		writeMember(names[i], m.data)
	}
	return buf.Bytes()
}

// buildBSDArchive writes a BSD archive using "#1/len" names and a __.SYMDEF member
func buildBSDArchive(members ...arFile) []byte {
	var buf bytes.Buffer
	buf.Write(arMagic)
	writeMember := func(name string, data []byte) {
		field := "#1/" + fmt.Sprint(len(name))
		buf.WriteString(arHeader(field, len(name)+len(data)))
		buf.WriteString(name)
		buf.Write(data)
		if (len(name)+len(data))%2 == 1 {
			buf.WriteByte('\n')
		}
	}

	writeMember("__.SYMDEF", make([]byte, 8))
	for _, m := range members {
		writeMember(m.name, m.data)
	}
	return buf.Bytes()
}

// stackProtectedObject is a relocatable ELF object referencing __stack_chk_fail
func stackProtectedObject(t testing.TB, symbol string) []byte {
	return buildELF64(t, elfFixture{
		typ:     elf.ET_REL,
		machine: elf.EM_X86_64,
		static:  true,
		symtab: []elfSymbol{
			{name: "main", info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), shndx: 1},
			{name: symbol, info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_NOTYPE)},
		},
	})
}

func unprotectedObject(t testing.TB) []byte {
	return buildELF64(t, elfFixture{
		typ:     elf.ET_REL,
		machine: elf.EM_X86_64,
		static:  true,
		symtab: []elfSymbol{
			{name: "main", info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), shndx: 1},
			{name: "puts", info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_NOTYPE)},
		},
	})
}

// fileLoader reads whole files and counts loads
type fileLoader struct {
	loads atomic.Int32
}

func (l *fileLoader) Load(path string) (*entities.BinaryImage, error) {
	l.loads.Add(1)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrIOFailure, err)
	}
	return entities.NewBinaryImage(path, data, nil), nil
}

// stubResolver returns a fixed handle or error
type stubResolver struct {
	handle *entities.LibcHandle
	err    error
	calls  atomic.Int32
}

func (r *stubResolver) Resolve(_ context.Context, _ []string, _ elf.Machine) (*entities.LibcHandle, error) {
	r.calls.Add(1)
	return r.handle, r.err
}

func analyzeBytes(t testing.TB, resolver *stubResolver, path string, data []byte) ([]entities.FeatureReport, *entities.BinaryImage, error) {
	t.Helper()
	var g *binaryAnalyzerGateway
	if resolver == nil {
		g = NewBinaryAnalyzerGateway(nil, nil)
	} else {
		g = NewBinaryAnalyzerGateway(resolver, nil)
	}
	image := entities.NewBinaryImage(path, data, nil)
	features, err := g.Analyze(context.Background(), image)
	return features, image, err
}

func statusMap(features []entities.FeatureReport) map[entities.SecurityFeature]entities.FeatureStatus {
	m := make(map[entities.SecurityFeature]entities.FeatureStatus, len(features))
	for _, f := range features {
		m[f.Feature] = f.Status
	}
	return m
}

// recordingLogger keeps "level: message" lines for assertions
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...interfaces.Field) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...interfaces.Field) { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...interfaces.Field) { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...interfaces.Field) { l.record("error", msg) }

func (l *recordingLogger) With(_ ...interfaces.Field) interfaces.Logger { return l }

func (l *recordingLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.HasPrefix(m, level+": ") && strings.Contains(m, substr) {
			return true
		}
	}
	return false
}
