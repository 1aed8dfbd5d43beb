package distro

// Tool names used by the conversion strategies.
const (
	ToolAlien  = "alien"
	ToolDebtap = "debtap"
)

// Family is one of Debian, RPM, Arch or Unknown.
type Family interface {
	// Name is a short label for logs.
	Name() string
	// ConversionTool is the utility that turns a .deb into the native format,
	// or an empty string when none is needed or possible.
	ConversionTool() string

	isFamily()
}

// Debian installs .deb packages natively through apt.
type Debian struct{}

// RPM converts to .rpm; Manager is the package manager able to fetch the tool.
type RPM struct {
	Manager string
}

// Arch converts to a pacman archive.
type Arch struct{}

// Unknown covers everything else and always falls back to manual extraction.
type Unknown struct{}

// Name implements Family.
func (Debian) Name() string { return "debian" }

// Name implements Family.
func (RPM) Name() string { return "rpm" }

// Name implements Family.
func (Arch) Name() string { return "arch" }

// Name implements Family.
func (Unknown) Name() string { return "unknown" }

// ConversionTool implements Family.
func (Debian) ConversionTool() string { return "" }

// ConversionTool implements Family.
func (RPM) ConversionTool() string { return ToolAlien }

// ConversionTool implements Family.
func (Arch) ConversionTool() string { return ToolDebtap }

// ConversionTool implements Family.
func (Unknown) ConversionTool() string { return "" }

func (Debian) isFamily()  {}
func (RPM) isFamily()     {}
func (Arch) isFamily()    {}
func (Unknown) isFamily() {}
