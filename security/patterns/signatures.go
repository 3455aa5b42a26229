package patterns

/* Magic-byte tables. A Signature matches when Magic appears at Offset
 * in the file header (and Also at AlsoOffset when set, which covers
 * container formats like RIFF/WebP).
 */

// Signature describes one known file format by its leading bytes.
type Signature struct {
	Format     string // short format name, e.g. "png", "pe"
	MIME       string // canonical MIME type, "" when none applies
	Magic      []byte
	Offset     int
	Also       []byte // secondary magic, nil when unused
	AlsoOffset int
	Executable bool // native or bytecode executable: always critical
	Dangerous  bool // risky container (archives, PDF) for mismatch scaling
	Markup     bool // script/markup format: high when declared as image
}

// HeaderSize is how many leading bytes signature detection reads.
const HeaderSize = 32

var fileSignatures = []Signature{
	// Image formats
	{Format: "png", MIME: "image/png", Magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{Format: "jpeg", MIME: "image/jpeg", Magic: []byte{0xFF, 0xD8, 0xFF}},
	{Format: "gif", MIME: "image/gif", Magic: []byte("GIF87a")},
	{Format: "gif", MIME: "image/gif", Magic: []byte("GIF89a")},
	{Format: "webp", MIME: "image/webp", Magic: []byte("RIFF"), Also: []byte("WEBP"), AlsoOffset: 8},
	{Format: "bmp", MIME: "image/bmp", Magic: []byte{0x42, 0x4D}},
	{Format: "tiff", MIME: "image/tiff", Magic: []byte{0x49, 0x49, 0x2A, 0x00}},
	{Format: "tiff", MIME: "image/tiff", Magic: []byte{0x4D, 0x4D, 0x00, 0x2A}},

	// Executables: a match is always a critical malware threat
	{Format: "pe", Magic: []byte{0x4D, 0x5A}, Executable: true},
	{Format: "elf", Magic: []byte{0x7F, 0x45, 0x4C, 0x46}, Executable: true},
	{Format: "macho", Magic: []byte{0xFE, 0xED, 0xFA, 0xCE}, Executable: true},
	{Format: "macho", Magic: []byte{0xFE, 0xED, 0xFA, 0xCF}, Executable: true},
	{Format: "macho", Magic: []byte{0xCF, 0xFA, 0xED, 0xFE}, Executable: true},
	{Format: "java-class", Magic: []byte{0xCA, 0xFE, 0xBA, 0xBE}, Executable: true},

	// Dangerous containers: scaled severity on MIME mismatch
	{Format: "zip", MIME: "application/zip", Magic: []byte{0x50, 0x4B, 0x03, 0x04}, Dangerous: true},
	{Format: "rar", MIME: "application/x-rar-compressed", Magic: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07}, Dangerous: true},
	{Format: "gzip", MIME: "application/gzip", Magic: []byte{0x1F, 0x8B}, Dangerous: true},
	{Format: "pdf", MIME: "application/pdf", Magic: []byte("%PDF"), Dangerous: true},

	// Script/markup smuggled under a binary declaration
	{Format: "php", Magic: []byte("<?php"), Markup: true},
	{Format: "html", Magic: []byte("<!DOCTYPE"), Markup: true},
	{Format: "html", Magic: []byte("<html"), Markup: true},
	{Format: "script", Magic: []byte("<script"), Markup: true},
	{Format: "shell", Magic: []byte("#!"), Markup: true},
}

/* executableMagic is the subset of signatures searched for *inside*
 * file content (embedded payload detection), kept as raw byte slices
 * for cheap scanning.
 */
var executableMagic = [][]byte{
	{0x4D, 0x5A},             // PE
	{0x7F, 0x45, 0x4C, 0x46}, // ELF
	{0xCA, 0xFE, 0xBA, 0xBE}, // Java class
	{0xFE, 0xED, 0xFA, 0xCE}, // Mach-O 32
	{0xFE, 0xED, 0xFA, 0xCF}, // Mach-O 64
}

// Matches reports whether the signature matches the given header.
func (s Signature) Matches(header []byte) bool {
	if !bytesAt(header, s.Magic, s.Offset) {
		return false
	}
	if s.Also != nil && !bytesAt(header, s.Also, s.AlsoOffset) {
		return false
	}
	return true
}

func bytesAt(data, magic []byte, offset int) bool {
	if len(data) < offset+len(magic) {
		return false
	}
	for i, b := range magic {
		if data[offset+i] != b {
			return false
		}
	}
	return true
}
