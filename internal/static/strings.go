package static

// MinStringLength is the shortest run reported as a string.
const MinStringLength = 4

// MaxStringsPerKind caps the ASCII and the wide matches independently.
const MaxStringsPerKind = 100

// StringSummary describes printable strings recovered from a binary.
type StringSummary struct {
	Total      int      `json:"total_strings"`
	ASCII      []string `json:"ascii"`
	Wide       []string `json:"wide"`
	Suspicious []string `json:"suspicious_strings"`
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}

// ExtractStrings finds maximal printable ASCII runs and UTF-16LE runs of at least
// MinStringLength characters, keeping the first MaxStringsPerKind of each kind.
func ExtractStrings(data []byte) StringSummary {
	ascii := asciiStrings(data, MaxStringsPerKind)
	wide := wideStrings(data, MaxStringsPerKind)

	summary := StringSummary{
		Total:      len(ascii) + len(wide),
		ASCII:      ascii,
		Wide:       wide,
		Suspicious: []string{},
	}
	for _, group := range [][]string{ascii, wide} {
		for _, s := range group {
			if IsSuspiciousString(s) {
				summary.Suspicious = append(summary.Suspicious, s)
			}
		}
	}
	return summary
}

func asciiStrings(data []byte, limit int) []string {
	out := []string{}
	start := -1
	for i := 0; i <= len(data); i++ {
		if i < len(data) && isPrintable(data[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= MinStringLength {
			out = append(out, string(data[start:i]))
			if len(out) == limit {
				return out
			}
		}
		start = -1
	}
	return out
}

func wideStrings(data []byte, limit int) []string {
	out := []string{}
	i := 0
	for i+1 < len(data) {
		j := i
		for j+1 < len(data) && isPrintable(data[j]) && data[j+1] == 0 {
			j += 2
		}
		if n := (j - i) / 2; n >= MinStringLength {
			buf := make([]byte, n)
			for k := range buf {
				buf[k] = data[i+2*k]
			}
			out = append(out, string(buf))
			if len(out) == limit {
				return out
			}
			i = j
			continue
		}
		i++
	}
	return out
}
