package gateways

import (
	"bytes"
	"context"
	"debug/pe"
	"fmt"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/services"
)

// peAnalyzer extracts PE hardening facts with debug/pe over the mapped bytes
type peAnalyzer struct {
	logger interfaces.Logger
}

func newPEAnalyzer(logger interfaces.Logger) *peAnalyzer {
	return &peAnalyzer{logger: interfaces.OrNoOp(logger)}
}

// Analyze returns the thirteen PE features in report order
func (a *peAnalyzer) Analyze(_ context.Context, image *entities.BinaryImage) ([]entities.FeatureReport, error) {
	requireFormat(image, image.Format.IsPE(), "PE")

	f, err := pe.NewFile(bytes.NewReader(image.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PE file: %w: %w", entities.ErrMalformedBinary, err)
	}

	facts, err := a.extractFacts(image.Path, image.Data, f)
	if err != nil {
		return nil, err
	}
	return services.EvaluatePE(facts), nil
}

func (a *peAnalyzer) extractFacts(path string, data []byte, f *pe.File) (entities.PEFacts, error) {
	var (
		facts entities.PEFacts
		dll   uint16
		dirs  [16]pe.DataDirectory
	)

	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dll, facts.CheckSum, dirs = oh.DllCharacteristics, oh.CheckSum, oh.DataDirectory
	case *pe.OptionalHeader64:
		facts.Is64 = true
		dll, facts.CheckSum, dirs = oh.DllCharacteristics, oh.CheckSum, oh.DataDirectory
	default:
		return facts, fmt.Errorf("image has no optional header: %w", entities.ErrMalformedBinary)
	}

	chars := f.FileHeader.Characteristics
	facts.RelocsStripped = chars&pe.IMAGE_FILE_RELOCS_STRIPPED != 0
	facts.LargeAddressAware = chars&pe.IMAGE_FILE_LARGE_ADDRESS_AWARE != 0

	facts.HighEntropyVA = dll&pe.IMAGE_DLLCHARACTERISTICS_HIGH_ENTROPY_VA != 0
	facts.DynamicBase = dll&pe.IMAGE_DLLCHARACTERISTICS_DYNAMIC_BASE != 0
	facts.ForceIntegrity = dll&pe.IMAGE_DLLCHARACTERISTICS_FORCE_INTEGRITY != 0
	facts.NXCompat = dll&pe.IMAGE_DLLCHARACTERISTICS_NX_COMPAT != 0
	facts.NoIsolation = dll&pe.IMAGE_DLLCHARACTERISTICS_NO_ISOLATION != 0
	facts.NoSEH = dll&pe.IMAGE_DLLCHARACTERISTICS_NO_SEH != 0
	facts.AppContainer = dll&pe.IMAGE_DLLCHARACTERISTICS_APPCONTAINER != 0
	facts.GuardCF = dll&pe.IMAGE_DLLCHARACTERISTICS_GUARD_CF != 0

	if facts.CheckSum != 0 {
		facts.ChecksumState = entities.ChecksumMismatch
		if off, ok := checksumOffset(data); ok && imageChecksum(data, off) == facts.CheckSum {
			facts.ChecksumState = entities.ChecksumMatches
		}
	}

	cert := dirs[pe.IMAGE_DIRECTORY_ENTRY_SECURITY]
	facts.HasCertificate = cert.VirtualAddress != 0 && cert.Size != 0
	facts.HasManifestResource = hasManifestResource(data, f, dirs[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE])
	facts.LoadConfig = readLoadConfig(data, f, dirs[pe.IMAGE_DIRECTORY_ENTRY_LOAD_CONFIG], facts.Is64)

	a.logger.Debug("Parsed PE headers",
		interfaces.PathField(path),
		interfaces.F("dll_characteristics", fmt.Sprintf("0x%04x", dll)),
		interfaces.F("characteristics", fmt.Sprintf("0x%04x", chars)),
		interfaces.F("load_config", facts.LoadConfig != nil),
		interfaces.F("manifest", facts.HasManifestResource))
	if facts.ForceIntegrity && !facts.HasCertificate {
		a.logger.Warn("Image requires signature verification at load time but carries no certificate, the loader will refuse it",
			interfaces.PathField(path))
	}
	return facts, nil
}
