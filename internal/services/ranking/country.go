package ranking

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

// Global is the partition that aggregates every country.
const Global = "global"

// CanonicalCountry normalizes an ISO 3166 country code. Empty and "global"
// map to "", meaning no country partition.
func CanonicalCountry(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, Global) {
		return "", nil
	}

	region, err := language.ParseRegion(code)
	if err != nil {
		return "", fmt.Errorf("country %q: %w", code, ledger.ErrInvalidInput)
	}
	if !region.IsCountry() {
		return "", fmt.Errorf("country %q is not a country code: %w", code, ledger.ErrInvalidInput)
	}

	return region.String(), nil
}
