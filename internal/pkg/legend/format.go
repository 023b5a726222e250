package legend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/normalizer"
)

// FormatValue formats a value with a printf-style format string, "%.1f" by default.
//
// Integer verbs round the value, %s prints its shortest decimal representation.
func FormatValue(format string, v float64) string {
	if format == "" {
		format = normalizer.DefaultFormat
	}

	switch ParseFormat(format).Verb {
	case 'd', 'x', 'X', 'o', 'c':
		return fmt.Sprintf(format, int64(math.Round(v)))
	case 's', 'v':
		return fmt.Sprintf(format, strconv.FormatFloat(v, 'f', -1, 64))
	case 0:
		return format
	default:
		return fmt.Sprintf(format, v)
	}
}

// Directive is the first directive of a printf-style format string, with the literal text
// around it.
type Directive struct {
	Prefix    string
	Verb      byte // 0 when the format has no directive
	Precision int  // -1 when unspecified
	Suffix    string
}

// Decimals is the number of decimals printed by the directive, or -1 for the shortest
// representation.
func (d Directive) Decimals() int {
	switch d.Verb {
	case 'd', 'x', 'X', 'o', 'c':
		return 0
	case 'f', 'F', 'e', 'E':
		if d.Precision < 0 {
			return 6 //nolint:mnd // printf default precision
		}

		return d.Precision
	default:
		return -1
	}
}

// ParseFormat locates the first directive of a printf-style format string.
//
// Escaped percent signs in the literal parts are unescaped.
func ParseFormat(format string) Directive {
	unescape := strings.NewReplacer("%%", "%")

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}

		j := i + 1
		if j < len(format) && format[j] == '%' {
			i = j

			continue
		}

		precision := -1
		for j < len(format) && strings.IndexByte("+-# 0123456789", format[j]) >= 0 {
			j++
		}

		if j < len(format) && format[j] == '.' {
			j++
			start := j
			for j < len(format) && format[j] >= '0' && format[j] <= '9' {
				j++
			}
			precision, _ = strconv.Atoi(format[start:j]) // an empty precision is zero
		}

		if j < len(format) {
			return Directive{
				Prefix:    unescape.Replace(format[:i]),
				Verb:      format[j],
				Precision: precision,
				Suffix:    unescape.Replace(format[j+1:]),
			}
		}
	}

	return Directive{Prefix: unescape.Replace(format), Precision: -1}
}
