// Package services implements domain business logic and use cases.
package services

import (
	"sort"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// FortifyVerdict is the FORTIFY-SOURCE outcome for one binary
type FortifyVerdict struct {
	Status      entities.FeatureStatus
	Protected   []string // functions called through their checked variant
	Unprotected []string // functions called unchecked although a checked variant exists
}

// statusOf maps a conclusive boolean observation to Present or Absent
func statusOf(present bool) entities.FeatureStatus {
	if present {
		return entities.StatusPresent
	}
	return entities.StatusAbsent
}

// EvaluateELF decides the ELF feature statuses from extracted facts.
// A nil libc means the C runtime is unavailable and FORTIFY-SOURCE is unknown.
// Pure business logic - no I/O
func EvaluateELF(facts entities.ELFFacts, libc *entities.LibcHandle) []entities.FeatureReport {
	var aslr entities.FeatureStatus
	switch facts.Kind {
	case entities.ELFExecutable:
		aslr = entities.StatusAbsent
	case entities.ELFShared:
		aslr = entities.StatusPresent
	default:
		aslr = entities.StatusUnknown
	}

	relro := entities.StatusAbsent
	if facts.HasGNURelro {
		relro = entities.StatusProbablyPresent
		if facts.BindNow {
			relro = entities.StatusPresent
		}
	}

	fortify := FortifyVerdict{Status: entities.StatusUnknown}
	if libc != nil {
		fortify = EvaluateFortify(facts, libc)
	}

	return []entities.FeatureReport{
		{Feature: entities.FeatureASLR, Status: aslr},
		{Feature: entities.FeatureStackProtection, Status: statusOf(facts.StackChkUsed)},
		{Feature: entities.FeatureReadOnlyReloc, Status: relro},
		{Feature: entities.FeatureImmediateBinding, Status: statusOf(facts.BindNow)},
		{
			Feature:     entities.FeatureFortifySource,
			Status:      fortify.Status,
			Protected:   fortify.Protected,
			Unprotected: fortify.Unprotected,
		},
	}
}

// FortifyPairStatus applies the FORTIFY_SOURCE decision table to one
// unchecked/checked function pair.
// Pure business logic - no I/O
func FortifyPairStatus(uncheckedImported, checkedImported, libcExportsChecked bool) entities.FeatureStatus {
	switch {
	case uncheckedImported && checkedImported:
		return entities.StatusProbablyPresent
	case checkedImported:
		return entities.StatusPresent
	case uncheckedImported && libcExportsChecked:
		return entities.StatusAbsent
	default:
		// Pair unused, or libc cannot confirm the checked variant exists.
		return entities.StatusUnknown
	}
}

// AggregateFortify combines per-pair statuses into the binary's status.
// Pure business logic - no I/O
func AggregateFortify(statuses []entities.FeatureStatus) entities.FeatureStatus {
	var present, absent, mixed bool
	for _, s := range statuses {
		switch s {
		case entities.StatusPresent:
			present = true
		case entities.StatusAbsent:
			absent = true
		case entities.StatusProbablyPresent:
			mixed = true
		}
	}

	switch {
	case !present && !absent && !mixed:
		return entities.StatusUnknown
	case absent && !present:
		return entities.StatusAbsent
	case absent || mixed:
		return entities.StatusProbablyPresent
	default:
		return entities.StatusPresent
	}
}

// EvaluateFortify checks every pair of the default catalog entry and of libc
// against the binary's imported functions.
// Pure business logic - no I/O
func EvaluateFortify(facts entities.ELFFacts, libc *entities.LibcHandle) FortifyVerdict {
	pairs := fortifyPairs(libc)
	statuses := make([]entities.FeatureStatus, 0, len(pairs))
	verdict := FortifyVerdict{}

	for _, pair := range pairs {
		unchecked := facts.Imports(pair.Unchecked)
		checked := facts.Imports(pair.Checked)
		exported := libc.ExportsChecked(pair.Unchecked)

		statuses = append(statuses, FortifyPairStatus(unchecked, checked, exported))
		if checked {
			verdict.Protected = append(verdict.Protected, pair.Unchecked)
		}
		if unchecked && exported {
			verdict.Unprotected = append(verdict.Unprotected, pair.Unchecked)
		}
	}

	verdict.Status = AggregateFortify(statuses)
	return verdict
}

func fortifyPairs(libc *entities.LibcHandle) []entities.CheckedFunction {
	seen := make(map[string]struct{})
	var pairs []entities.CheckedFunction
	add := func(fn entities.CheckedFunction) {
		if _, ok := seen[fn.Unchecked]; ok {
			return
		}
		seen[fn.Unchecked] = struct{}{}
		pairs = append(pairs, fn)
	}

	for _, name := range entities.DefaultLibcSpec.FunctionsWithCheckedVersions() {
		add(entities.CheckedFunctionOf(name))
	}
	for _, fn := range libc.CheckedPairs() {
		add(fn)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Unchecked < pairs[j].Unchecked })
	return pairs
}

// AggregateArchive combines the STACK-PROT statuses of an archive's members.
// Pure business logic - no I/O
func AggregateArchive(members []entities.FeatureStatus) entities.FeatureStatus {
	if len(members) == 0 {
		return entities.StatusUnknown
	}

	allPresent := true
	for _, s := range members {
		if s == entities.StatusAbsent {
			return entities.StatusAbsent
		}
		if s != entities.StatusPresent {
			allPresent = false
		}
	}

	if allPresent {
		return entities.StatusPresent
	}
	return entities.StatusProbablyPresent
}

// EvaluatePE decides the PE feature statuses from extracted facts.
// Pure business logic - no I/O
func EvaluatePE(facts entities.PEFacts) []entities.FeatureReport {
	reports := []entities.FeatureReport{
		{Feature: entities.FeatureChecksum, Status: peChecksumStatus(facts)},
		{Feature: entities.FeatureDataExecPrevention, Status: statusOf(facts.NXCompat)},
		{Feature: entities.FeatureRunsInAppContainer, Status: statusOf(facts.AppContainer)},
		{Feature: entities.FeatureConsidersManifest, Status: statusOf(!facts.NoIsolation || facts.HasManifestResource)},
		{Feature: entities.FeatureVerifyDigitalCert, Status: statusOf(facts.HasCertificate)},
		{Feature: entities.FeatureControlFlowGuard, Status: peControlFlowGuardStatus(facts)},
		{Feature: entities.FeatureHandlesAddrOver2GB, Status: statusOf(facts.LargeAddressAware)},
	}
	reports = append(reports, peASLRStatuses(facts)...)
	reports = append(reports, entities.FeatureReport{
		Feature: entities.FeatureSafeStructuredException,
		Status:  peSafeSEHStatus(facts),
	})
	return reports
}

func peChecksumStatus(facts entities.PEFacts) entities.FeatureStatus {
	switch {
	case facts.CheckSum == 0:
		return entities.StatusAbsent
	case facts.ChecksumState == entities.ChecksumMatches:
		return entities.StatusPresent
	default:
		return entities.StatusProbablyPresent
	}
}

func peControlFlowGuardStatus(facts entities.PEFacts) entities.FeatureStatus {
	if !facts.GuardCF {
		return entities.StatusAbsent
	}
	lc := facts.LoadConfig
	if lc == nil || !lc.HasGuardFlags {
		return entities.StatusProbablyPresent
	}
	if lc.GuardFlags == 0 {
		return entities.StatusAbsent
	}
	if !facts.DynamicBase {
		// CFG cannot take effect on an image that is never relocated.
		return entities.StatusProbablyPresent
	}
	return entities.StatusPresent
}

func peASLRStatuses(facts entities.PEFacts) []entities.FeatureReport {
	aslr, expensive, lowEntropy, below2G, lowEntropyBelow2G := false, false, false, false, false

	switch {
	case facts.RelocsStripped:
		// The loader cannot relocate the image at all.
	case !facts.DynamicBase:
		expensive = true
	default:
		aslr = true
		lowEntropy = !facts.HighEntropyVA
		below2G = !facts.LargeAddressAware
		lowEntropyBelow2G = lowEntropy && below2G
	}

	return []entities.FeatureReport{
		{Feature: entities.FeatureASLR, Status: statusOf(aslr)},
		{Feature: entities.FeatureASLRExpensive, Status: statusOf(expensive)},
		{Feature: entities.FeatureASLRLowEntropy, Status: statusOf(lowEntropy)},
		{Feature: entities.FeatureASLRBelow2GB, Status: statusOf(below2G)},
		{Feature: entities.FeatureASLRLowEntropyBelow2GB, Status: statusOf(lowEntropyBelow2G)},
	}
}

func peSafeSEHStatus(facts entities.PEFacts) entities.FeatureStatus {
	switch {
	case facts.Is64:
		// SafeSEH only exists for x86 images
		return entities.StatusUnknown
	case facts.NoSEH:
		return entities.StatusAbsent
	case facts.LoadConfig == nil:
		return entities.StatusUnknown
	case facts.LoadConfig.HasSEHandlers && facts.LoadConfig.SEHandlerCount > 0:
		return entities.StatusPresent
	default:
		return entities.StatusAbsent
	}
}
