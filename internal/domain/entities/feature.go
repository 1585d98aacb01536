package entities

// SecurityFeature identifies one hardening feature by its stable report keyword
type SecurityFeature string

// ELF features
const (
	FeatureASLR             SecurityFeature = "ASLR"
	FeatureStackProtection  SecurityFeature = "STACK-PROT"
	FeatureReadOnlyReloc    SecurityFeature = "READ-ONLY-RELOC"
	FeatureImmediateBinding SecurityFeature = "IMMEDIATE-BIND"
	FeatureFortifySource    SecurityFeature = "FORTIFY-SOURCE"
)

// PE features (FeatureASLR is shared with ELF)
const (
	FeatureChecksum                SecurityFeature = "CHECKSUM"
	FeatureDataExecPrevention      SecurityFeature = "DATA-EXEC-PREVENT"
	FeatureRunsInAppContainer      SecurityFeature = "RUNS-IN-APP-CONTAINER"
	FeatureConsidersManifest       SecurityFeature = "CONSIDER-MANIFEST"
	FeatureVerifyDigitalCert       SecurityFeature = "VERIFY-DIGITAL-CERT"
	FeatureControlFlowGuard        SecurityFeature = "CONTROL-FLOW-GUARD"
	FeatureHandlesAddrOver2GB      SecurityFeature = "HANDLES-ADDR-GT-2GB"
	FeatureASLRExpensive           SecurityFeature = "ASLR-EXPENSIVE"
	FeatureASLRLowEntropy          SecurityFeature = "ASLR-LOW-ENTROPY"
	FeatureASLRBelow2GB            SecurityFeature = "ASLR-LT-2GB"
	FeatureASLRLowEntropyBelow2GB  SecurityFeature = "ASLR-LOW-ENTROPY-LT-2GB"
	FeatureSafeStructuredException SecurityFeature = "SAFE-SEH"
)

// FeatureStatus is the inferred state of a feature in one binary
type FeatureStatus int

const (
	// StatusUnknown means the available data cannot decide. It is never a default.
	StatusUnknown FeatureStatus = iota
	// StatusPresent means the feature is confirmed
	StatusPresent
	// StatusAbsent means the feature is confirmed missing
	StatusAbsent
	// StatusProbablyPresent means partial or mixed evidence
	StatusProbablyPresent
)

// String returns the status name used in machine-readable reports
func (s FeatureStatus) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	case StatusProbablyPresent:
		return "probably-present"
	default:
		return "unknown"
	}
}

// Marker returns the single-character glyph used by the text report
func (s FeatureStatus) Marker() string {
	switch s {
	case StatusPresent:
		return "+"
	case StatusAbsent:
		return "!"
	case StatusProbablyPresent:
		return "~"
	default:
		return "?"
	}
}

// FeatureReport is one (feature, status) entry of an analysis
type FeatureReport struct {
	Feature SecurityFeature
	Status  FeatureStatus
	// Protected and Unprotected are only filled for FORTIFY-SOURCE and list
	// the libc functions used through their checked / unchecked variant.
	Protected   []string
	Unprotected []string
}
