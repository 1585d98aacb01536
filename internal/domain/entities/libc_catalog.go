package entities

import "fmt"

// LibcSpec names a Linux Standard Base version whose libc symbol list is compiled in
type LibcSpec string

// Supported specification versions
const (
	LSB1         LibcSpec = "lsb1"
	LSB1Dot1     LibcSpec = "lsb1dot1"
	LSB1Dot2     LibcSpec = "lsb1dot2"
	LSB1Dot3     LibcSpec = "lsb1dot3"
	LSB2         LibcSpec = "lsb2"
	LSB2Dot0Dot1 LibcSpec = "lsb2dot0dot1"
	LSB2Dot1     LibcSpec = "lsb2dot1"
	LSB3         LibcSpec = "lsb3"
	LSB3Dot1     LibcSpec = "lsb3dot1"
	LSB3Dot2     LibcSpec = "lsb3dot2"
	LSB4         LibcSpec = "lsb4"
	LSB4Dot1     LibcSpec = "lsb4dot1"
	LSB5         LibcSpec = "lsb5"
)

// DefaultLibcSpec is the catalog entry whose pairs are always checked
const DefaultLibcSpec = LSB5

var lsbVersions = map[LibcSpec]string{
	LSB1:         "1.0.0",
	LSB1Dot1:     "1.1.0",
	LSB1Dot2:     "1.2.0",
	LSB1Dot3:     "1.3.0",
	LSB2:         "2.0.0",
	LSB2Dot0Dot1: "2.0.1",
	LSB2Dot1:     "2.1.0",
	LSB3:         "3.0.0",
	LSB3Dot1:     "3.1.0",
	LSB3Dot2:     "3.2.0",
	LSB4:         "4.0.0",
	LSB4Dot1:     "4.1.0",
	LSB5:         "5.0.0",
}

// AllLibcSpecs lists the catalog versions in ascending order
func AllLibcSpecs() []LibcSpec {
	return []LibcSpec{
		LSB1, LSB1Dot1, LSB1Dot2, LSB1Dot3,
		LSB2, LSB2Dot0Dot1, LSB2Dot1,
		LSB3, LSB3Dot1, LSB3Dot2,
		LSB4, LSB4Dot1, LSB5,
	}
}

// ParseLibcSpec validates a specification keyword such as "lsb4dot1"
func ParseLibcSpec(s string) (LibcSpec, error) {
	spec := LibcSpec(s)
	if _, ok := lsbVersions[spec]; !ok {
		return "", fmt.Errorf("unknown libc specification: %q", s)
	}
	return spec, nil
}

// Version returns the dotted version, e.g. "4.1.0"
func (s LibcSpec) Version() string {
	return lsbVersions[s]
}

func (s LibcSpec) String() string {
	return "Linux Standard Base " + s.Version()
}

// FunctionsWithCheckedVersions returns the unchecked names whose "__*_chk"
// variant the specification requires libc to export
func (s LibcSpec) FunctionsWithCheckedVersions() []string {
	switch s {
	case LSB4, LSB4Dot1, LSB5:
		return append([]string(nil), lsb4FunctionsWithCheckedVersions...)
	default:
		// _chk functions entered the LSB core library list with 4.0.0
		return nil
	}
}

// LSB 4.0.0, 4.1.0 and 5.0.0 libc.so.6 interface lists.
var lsb4FunctionsWithCheckedVersions = []string{
	"confstr",
	"fgets",
	"fgets_unlocked",
	"fgetws",
	"fgetws_unlocked",
	"fprintf",
	"fwprintf",
	"getcwd",
	"getgroups",
	"gethostname",
	"getlogin_r",
	"mbsnrtowcs",
	"mbsrtowcs",
	"mbstowcs",
	"memcpy",
	"memmove",
	"mempcpy",
	"memset",
	"pread64",
	"pread",
	"printf",
	"read",
	"readlink",
	"realpath",
	"recv",
	"recvfrom",
	"snprintf",
	"sprintf",
	"stpcpy",
	"stpncpy",
	"strcat",
	"strcpy",
	"strncat",
	"strncpy",
	"swprintf",
	"syslog",
	"ttyname_r",
	"vfprintf",
	"vfwprintf",
	"vprintf",
	"vsnprintf",
	"vsprintf",
	"vswprintf",
	"vsyslog",
	"vwprintf",
	"wcpcpy",
	"wcpncpy",
	"wcrtomb",
	"wcscat",
	"wcscpy",
	"wcsncat",
	"wcsncpy",
	"wcsnrtombs",
	"wcsrtombs",
	"wcstombs",
	"wctomb",
	"wmemcpy",
	"wmemmove",
	"wmempcpy",
	"wmemset",
	"wprintf",
}
