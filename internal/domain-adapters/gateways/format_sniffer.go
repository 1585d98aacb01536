package gateways

import (
	"bytes"
	"fmt"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

var (
	arMagic     = []byte("!<arch>\n")
	arThinMagic = []byte("!<thin>\n")
	elfMagic    = []byte("\x7fELF")
	peSignature = []byte("PE\x00\x00")
)

const (
	elfClassOffset     = 4
	dosLfanewOffset    = 0x3c
	coffHeaderSize     = 20
	peOptMagicPE32     = 0x10b
	peOptMagicPE32Plus = 0x20b
)

// Sniff identifies the container format from the leading magic bytes
func Sniff(data []byte) (entities.BinaryFormat, error) {
	switch {
	case bytes.HasPrefix(data, arMagic):
		return entities.FormatArchive, nil
	case bytes.HasPrefix(data, arThinMagic):
		return entities.FormatUnrecognized, fmt.Errorf("thin archives reference external members: %w", entities.ErrUnsupportedFormat)
	case bytes.HasPrefix(data, elfMagic):
		return sniffELF(data)
	case bytes.HasPrefix(data, []byte("MZ")):
		return sniffPE(data)
	default:
		return entities.FormatUnrecognized, entities.ErrUnsupportedFormat
	}
}

func sniffELF(data []byte) (entities.BinaryFormat, error) {
	if len(data) <= elfClassOffset {
		return entities.FormatUnrecognized, fmt.Errorf("truncated ELF identification: %w", entities.ErrMalformedBinary)
	}
	switch data[elfClassOffset] {
	case 1:
		return entities.FormatELF32, nil
	case 2:
		return entities.FormatELF64, nil
	default:
		return entities.FormatUnrecognized, fmt.Errorf("invalid ELF class %d: %w", data[elfClassOffset], entities.ErrMalformedBinary)
	}
}

func sniffPE(data []byte) (entities.BinaryFormat, error) {
	lfanew, ok := readUint[uint32](data, dosLfanewOffset)
	if !ok {
		return entities.FormatUnrecognized, fmt.Errorf("truncated DOS header: %w", entities.ErrMalformedBinary)
	}

	// Without a PE signature this is a plain DOS executable.
	sigOff := int(lfanew)
	if sigOff < 0 || sigOff > len(data)-len(peSignature) || !bytes.Equal(data[sigOff:sigOff+len(peSignature)], peSignature) {
		return entities.FormatUnrecognized, fmt.Errorf("no PE signature at 0x%x: %w", lfanew, entities.ErrUnsupportedFormat)
	}

	magic, ok := readUint[uint16](data, sigOff+len(peSignature)+coffHeaderSize)
	if !ok {
		return entities.FormatUnrecognized, fmt.Errorf("truncated PE optional header: %w", entities.ErrMalformedBinary)
	}
	switch magic {
	case peOptMagicPE32:
		return entities.FormatPE32, nil
	case peOptMagicPE32Plus:
		return entities.FormatPE32Plus, nil
	default:
		return entities.FormatUnrecognized, fmt.Errorf("invalid PE optional header magic 0x%x: %w", magic, entities.ErrMalformedBinary)
	}
}
