package gateways

import (
	"bytes"
	"context"
	"debug/elf"
	"debug/pe"
	"encoding/binary"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/services"
)

// MSVC /GS runtime symbols referenced by protected COFF objects
var securityCookieSymbols = map[string]struct{}{
	"__security_cookie":          {},
	"___security_cookie":         {},
	"__security_check_cookie":    {},
	"@__security_check_cookie@4": {},
	"__GSHandlerCheck":           {},
}

// debug/pe reads a fixed-size DOS header before it looks at the COFF header
const peMinReadSize = 96

// archiveAnalyzer checks stack protection in every object member of an ar archive
type archiveAnalyzer struct {
	logger interfaces.Logger
}

func newArchiveAnalyzer(logger interfaces.Logger) *archiveAnalyzer {
	return &archiveAnalyzer{logger: interfaces.OrNoOp(logger)}
}

// Analyze returns the aggregated STACK-PROT status of the archive's object members
func (a *archiveAnalyzer) Analyze(_ context.Context, image *entities.BinaryImage) ([]entities.FeatureReport, error) {
	requireFormat(image, image.Format == entities.FormatArchive, "archive")

	members, err := readArchive(image.Data)
	if err != nil {
		return nil, err
	}

	statuses := make([]entities.FeatureStatus, 0, len(members))
	for _, m := range members {
		log := a.logger.With(interfaces.PathField(image.Path), interfaces.F("member", m.Name))
		status, isObject := memberStatus(log, m)
		if !isObject {
			log.Warn("Archive member is not an object file")
			continue
		}
		statuses = append(statuses, status)
	}

	return []entities.FeatureReport{
		{Feature: entities.FeatureStackProtection, Status: services.AggregateArchive(statuses)},
	}, nil
}

// memberStatus returns false when the member is not an ELF or COFF object.
// A member that looks like an object but cannot be parsed is Unknown.
func memberStatus(log interfaces.Logger, m arMember) (entities.FeatureStatus, bool) {
	switch {
	case bytes.HasPrefix(m.Data, elfMagic):
		log.Debug("Archive member format is ELF")
		return elfMemberStatus(log, m), true
	case isCOFFObject(m.Data):
		log.Debug("Archive member format is COFF")
		return coffMemberStatus(log, m), true
	default:
		return entities.StatusUnknown, false
	}
}

func elfMemberStatus(log interfaces.Logger, m arMember) entities.FeatureStatus {
	f, err := elf.NewFile(bytes.NewReader(m.Data))
	if err != nil {
		log.Warn("Failed to parse ELF archive member", interfaces.ErrField(err))
		return entities.StatusUnknown
	}

	found, err := symtabReferencesStackChk(f)
	if err != nil {
		log.Warn("Failed to read archive member symbols", interfaces.ErrField(err))
		return entities.StatusUnknown
	}
	if found {
		log.Debug("Found stack protector symbol in archive member")
		return entities.StatusPresent
	}
	return entities.StatusAbsent
}

func coffMemberStatus(log interfaces.Logger, m arMember) entities.FeatureStatus {
	data := m.Data
	if len(data) < peMinReadSize {
		data = make([]byte, peMinReadSize)
		copy(data, m.Data)
	}

	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		log.Warn("Failed to parse COFF archive member", interfaces.ErrField(err))
		return entities.StatusUnknown
	}

	for _, sym := range f.Symbols {
		if _, ok := securityCookieSymbols[sym.Name]; ok {
			log.Debug("Found security cookie symbol in archive member", interfaces.F("symbol", sym.Name))
			return entities.StatusPresent
		}
	}
	return entities.StatusAbsent
}

// isCOFFObject matches a raw COFF header for a machine debug/pe knows.
// Short import members start with IMAGE_FILE_MACHINE_UNKNOWN and are excluded.
func isCOFFObject(data []byte) bool {
	if len(data) < coffHeaderSize {
		return false
	}
	switch binary.LittleEndian.Uint16(data) {
	case pe.IMAGE_FILE_MACHINE_I386,
		pe.IMAGE_FILE_MACHINE_AMD64,
		pe.IMAGE_FILE_MACHINE_ARM64,
		pe.IMAGE_FILE_MACHINE_ARMNT:
		return true
	default:
		return false
	}
}
