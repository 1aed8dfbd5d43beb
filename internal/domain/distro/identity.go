package distro

import "strings"

// UnknownID is reported when the os-release file is missing or has no ID.
const UnknownID = "unknown"

// Package managers used by the RPM family.
const (
	ManagerDNF    = "dnf"
	ManagerYUM    = "yum"
	ManagerZypper = "zypper"
)

// Identity is the distribution and machine the provisioner runs on.
type Identity struct {
	// ID is the os-release ID, or UnknownID.
	ID string
	// IDLike holds the os-release ID_LIKE entries.
	IDLike []string
	// Architecture is the uname machine name, e.g. x86_64.
	Architecture string
	// Family is derived from ID and IDLike.
	Family Family
}

// NewIdentity builds an Identity and classifies it.
func NewIdentity(id string, idLike []string, architecture string) Identity {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		id = UnknownID
	}

	return Identity{
		ID:           id,
		IDLike:       idLike,
		Architecture: architecture,
		Family:       Classify(id, idLike),
	}
}

// IsUnknown reports whether no distribution ID was found.
func (i Identity) IsUnknown() bool {
	return i.ID == UnknownID
}

//nolint:gochecknoglobals // Lookup tables.
var (
	debianIDs = map[string]struct{}{
		"debian": {}, "ubuntu": {}, "linuxmint": {}, "pop": {}, "elementary": {},
		"zorin": {}, "kali": {}, "raspbian": {}, "neon": {}, "deepin": {}, "mx": {},
	}
	rpmIDs = map[string]string{
		"fedora": ManagerDNF, "rhel": ManagerDNF, "centos": ManagerDNF, "rocky": ManagerDNF,
		"almalinux": ManagerDNF, "ol": ManagerDNF, "nobara": ManagerDNF, "amzn": ManagerYUM,
		"opensuse": ManagerZypper, "opensuse-leap": ManagerZypper,
		"opensuse-tumbleweed": ManagerZypper, "opensuse-slowroll": ManagerZypper,
		"suse": ManagerZypper, "sles": ManagerZypper, "sled": ManagerZypper,
	}
	archIDs = map[string]struct{}{
		"arch": {}, "manjaro": {}, "endeavouros": {}, "garuda": {}, "artix": {},
		"cachyos": {}, "archcraft": {},
	}
)

// Classify maps an os-release ID to its family, consulting ID_LIKE entries
// when the ID itself is not known.
func Classify(id string, idLike []string) Family {
	if f, ok := classifyOne(id); ok {
		return f
	}

	for _, like := range idLike {
		if f, ok := classifyOne(like); ok {
			return f
		}
	}

	return Unknown{}
}

func classifyOne(id string) (Family, bool) {
	id = strings.ToLower(strings.TrimSpace(id))

	if _, ok := debianIDs[id]; ok {
		return Debian{}, true
	}

	if manager, ok := rpmIDs[id]; ok {
		return RPM{Manager: manager}, true
	}

	if _, ok := archIDs[id]; ok {
		return Arch{}, true
	}

	return nil, false
}

// MultiarchTriplet returns the Debian multiarch directory name for a uname
// machine. Unrecognized machines map to the x86_64 triplet.
func MultiarchTriplet(architecture string) string {
	switch strings.ToLower(architecture) {
	case "aarch64", "arm64":
		return "aarch64-linux-gnu"
	case "i386", "i486", "i586", "i686", "x86":
		return "i386-linux-gnu"
	case "armv7l", "armv7", "armhf":
		return "arm-linux-gnueabihf"
	case "ppc64le":
		return "powerpc64le-linux-gnu"
	case "s390x":
		return "s390x-linux-gnu"
	case "riscv64":
		return "riscv64-linux-gnu"
	default:
		return "x86_64-linux-gnu"
	}
}
