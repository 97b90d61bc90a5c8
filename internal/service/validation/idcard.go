package validation

import "strings"

// GB 11643 resident ID checksum: weighted sum of the first 17 digits
// modulo 11 indexes into the check-character table.
var (
	idCardWeights = [17]int{7, 9, 10, 5, 8, 4, 2, 1, 6, 3, 7, 9, 10, 5, 8, 4, 2}
	idCardChecks  = "10X98765432"
)

// ValidResidentID reports whether value is a well-formed resident ID:
// an 18-character form with a valid checksum, or the 15-digit legacy
// form, which carries no checksum and passes on shape alone.
func ValidResidentID(value string) bool {
	value = strings.TrimSpace(value)
	switch len(value) {
	case 18:
		total := 0
		for i := 0; i < 17; i++ {
			c := value[i]
			if c < '0' || c > '9' {
				return false
			}
			total += int(c-'0') * idCardWeights[i]
		}
		last := value[17]
		if last == 'x' {
			last = 'X'
		}
		if last != 'X' && (last < '0' || last > '9') {
			return false
		}
		return idCardChecks[total%11] == last
	case 15:
		for i := 0; i < 15; i++ {
			if value[i] < '0' || value[i] > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}
