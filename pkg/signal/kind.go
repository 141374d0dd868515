package signal

import "strings"

// Kind classifies a signal for default inclusion in read and describe
// result sets. Kinds are bit flags: hinted implies normal, hidden
// overrides both, and config is orthogonal to the hidden/normal/hinted
// ladder. The zero value is unspecified; constructors default it to
// KindHinted.
type Kind uint8

const (
	// KindNormal includes the signal in read results.
	KindNormal Kind = 1 << 0

	// KindConfig marks the signal as configuration data.
	KindConfig Kind = 1 << 1

	// kindHintFlag is the extra bit distinguishing hinted from normal.
	kindHintFlag Kind = 1 << 2

	// KindHidden excludes the signal from default result sets.
	KindHidden Kind = 1 << 3

	// KindHinted additionally marks the signal as a plotting hint.
	KindHinted Kind = KindNormal | kindHintFlag
)

// Normal reports whether the signal belongs in default read sets.
func (k Kind) Normal() bool { return k&KindNormal != 0 && !k.Hidden() }

// Hinted reports whether the signal is a plotting hint.
func (k Kind) Hinted() bool { return k&kindHintFlag != 0 && !k.Hidden() }

// Config reports whether the signal is configuration data.
func (k Kind) Config() bool { return k&KindConfig != 0 }

// Hidden reports whether the signal is excluded from default result sets.
func (k Kind) Hidden() bool { return k&KindHidden != 0 }

// String returns the kind flags as a string.
func (k Kind) String() string {
	if k.Hidden() {
		return "hidden"
	}
	var parts []string
	if k.Hinted() {
		parts = append(parts, "hinted")
	} else if k&KindNormal != 0 {
		parts = append(parts, "normal")
	}
	if k.Config() {
		parts = append(parts, "config")
	}
	if len(parts) == 0 {
		return "hidden"
	}
	return strings.Join(parts, "|")
}

// ParseKind resolves a kind name ("hidden", "normal", "hinted",
// "config", or combinations joined with "|") to its flags.
func ParseKind(s string) (Kind, bool) {
	if s == "" {
		return KindHinted, true
	}
	var k Kind
	for _, part := range strings.Split(s, "|") {
		switch strings.TrimSpace(part) {
		case "hidden":
			k |= KindHidden
		case "normal":
			k |= KindNormal
		case "hinted":
			k |= KindHinted
		case "config":
			k |= KindConfig
		default:
			return 0, false
		}
	}
	return k, true
}
