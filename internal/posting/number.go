package posting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saldo-dev/saldo/internal/model"
)

// FormatNumber renders a transaction number, e.g. "ID-202501-0004".
func FormatNumber(prefix string, period model.PeriodKey, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, period.Compact(), seq)
}

// ParseNumber splits a transaction number into prefix, period, and sequence.
func ParseNumber(number string) (prefix string, period model.PeriodKey, seq int64, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return "", "", 0, fmt.Errorf("invalid transaction number %q", number)
	}
	if len(parts[1]) != 6 {
		return "", "", 0, fmt.Errorf("invalid period in transaction number %q", number)
	}

	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid sequence in transaction number %q: %w", number, err)
	}

	period = model.PeriodKey(parts[1][:4] + "-" + parts[1][4:])
	if !period.Valid() {
		return "", "", 0, fmt.Errorf("invalid period in transaction number %q", number)
	}
	return parts[0], period, seq, nil
}
