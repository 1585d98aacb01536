package entities

// BinaryFormat is the container format detected by the sniffer
type BinaryFormat int

// Supported formats. New formats need a matching arm in the analyzer dispatch.
const (
	FormatUnrecognized BinaryFormat = iota
	FormatELF32
	FormatELF64
	FormatPE32
	FormatPE32Plus
	FormatArchive
)

func (f BinaryFormat) String() string {
	switch f {
	case FormatELF32:
		return "ELF32"
	case FormatELF64:
		return "ELF64"
	case FormatPE32:
		return "PE32"
	case FormatPE32Plus:
		return "PE32+"
	case FormatArchive:
		return "Archive"
	default:
		return "Unrecognized"
	}
}

// IsELF reports whether the format is ELF32 or ELF64
func (f BinaryFormat) IsELF() bool {
	return f == FormatELF32 || f == FormatELF64
}

// IsPE reports whether the format is PE32 or PE32+
func (f BinaryFormat) IsPE() bool {
	return f == FormatPE32 || f == FormatPE32Plus
}

// BinaryImage is a read-only view of one input file's bytes
type BinaryImage struct {
	Path   string
	Data   []byte // must not be written to, it may be a shared read-only mapping
	Format BinaryFormat

	release func() error
}

// NewBinaryImage wraps mapped bytes. release is called once by Close.
func NewBinaryImage(path string, data []byte, release func() error) *BinaryImage {
	return &BinaryImage{Path: path, Data: data, release: release}
}

// Close releases the underlying mapping
func (b *BinaryImage) Close() error {
	if b.release == nil {
		return nil
	}
	release := b.release
	b.release = nil
	b.Data = nil
	return release()
}
