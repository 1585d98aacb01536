package gateways

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

const arHeaderSize = 60

// arMember is one archive member. Data aliases the archive mapping.
type arMember struct {
	Name string
	Data []byte
}

// readArchive walks the members of a System V/GNU or BSD ar archive.
// Symbol table and long-name table members are consumed, not returned.
func readArchive(data []byte) ([]arMember, error) {
	if !bytes.HasPrefix(data, arMagic) {
		return nil, fmt.Errorf("missing archive magic: %w", entities.ErrMalformedBinary)
	}

	var (
		members   []arMember
		longNames []byte
	)
	off := len(arMagic)
	for off < len(data) {
		if data[off] == '\n' {
			off++
			continue
		}

		hdr, ok := slice(data, off, arHeaderSize)
		if !ok {
			return nil, fmt.Errorf("truncated member header at offset %d: %w", off, entities.ErrMalformedBinary)
		}
		if hdr[58] != '`' || hdr[59] != '\n' {
			return nil, fmt.Errorf("invalid member header terminator at offset %d: %w", off, entities.ErrMalformedBinary)
		}

		size, err := strconv.ParseUint(strings.TrimSpace(string(hdr[48:58])), 10, 63)
		if err != nil {
			return nil, fmt.Errorf("invalid member size at offset %d: %w", off, entities.ErrMalformedBinary)
		}
		body, ok := slice(data, off+arHeaderSize, int(min(size, uint64(len(data)))))
		if !ok || uint64(len(body)) != size {
			return nil, fmt.Errorf("member at offset %d runs past end of archive: %w", off, entities.ErrMalformedBinary)
		}
		off += arHeaderSize + len(body) + len(body)%2

		name := strings.TrimRight(string(hdr[:16]), " ")
		switch {
		case name == "//":
			longNames = body
			continue
		case isSymbolTableMember(name):
			continue
		case strings.HasPrefix(name, "#1/"):
			name, body, err = bsdLongName(name, body)
		case len(name) > 1 && name[0] == '/':
			name, err = gnuLongName(name, longNames)
		default:
			name = strings.TrimSuffix(name, "/")
		}
		if err != nil {
			return nil, err
		}
		if isSymbolTableMember(name) {
			continue
		}

		members = append(members, arMember{Name: name, Data: body})
	}
	return members, nil
}

func isSymbolTableMember(name string) bool {
	switch name {
	case "/", "/SYM64/", "__.SYMDEF", "__.SYMDEF SORTED", "__.SYMDEF_64", "__.SYMDEF_64 SORTED":
		return true
	}
	return strings.HasPrefix(name, "/<") // "/<ECSYMBOLS>/"
}

// bsdLongName handles "#1/len": the name is stored at the start of the member data
func bsdLongName(field string, body []byte) (string, []byte, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(field, "#1/"))
	if err != nil || n < 0 || n > len(body) {
		return "", nil, fmt.Errorf("invalid BSD member name %q: %w", field, entities.ErrMalformedBinary)
	}
	return strings.TrimRight(string(body[:n]), "\x00"), body[n:], nil
}

// gnuLongName handles "/offset" references into the "//" table
func gnuLongName(field string, table []byte) (string, error) {
	idx, err := strconv.Atoi(field[1:])
	if err != nil || idx < 0 || idx >= len(table) {
		return "", fmt.Errorf("invalid long member name reference %q: %w", field, entities.ErrMalformedBinary)
	}
	entry := table[idx:]
	if end := bytes.IndexByte(entry, '\n'); end >= 0 {
		entry = entry[:end]
	}
	return strings.TrimSuffix(string(entry), "/"), nil
}
