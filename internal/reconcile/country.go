package reconcile

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

var defaultCountries = map[string]string{
	"Australia":                "AU",
	"Austria":                  "AT",
	"Belgium":                  "BE",
	"Brazil":                   "BR",
	"Canada":                   "CA",
	"China":                    "CN",
	"Czech Republic":           "CZ",
	"Denmark":                  "DK",
	"Finland":                  "FI",
	"France":                   "FR",
	"Germany":                  "DE",
	"Hong Kong":                "HK",
	"Hungary":                  "HU",
	"India":                    "IN",
	"Ireland":                  "IE",
	"Italy":                    "IT",
	"Japan":                    "JP",
	"Luxembourg":               "LU",
	"Mexico":                   "MX",
	"Netherlands":              "NL",
	"The Netherlands":          "NL",
	"New Zealand":              "NZ",
	"Norway":                   "NO",
	"Poland":                   "PL",
	"Portugal":                 "PT",
	"Romania":                  "RO",
	"Singapore":                "SG",
	"South Africa":             "ZA",
	"Spain":                    "ES",
	"Sweden":                   "SE",
	"Switzerland":              "CH",
	"Turkey":                   "TR",
	"United Arab Emirates":     "AE",
	"United Kingdom":           "GB",
	"Great Britain":            "GB",
	"United States":            "US",
	"United States of America": "US",
}

// CountryTable maps free-text country names to ISO 3166 alpha-2 codes.
// Lookups ignore case and surrounding whitespace.
type CountryTable struct {
	codes map[string]string
}

// DefaultCountryTable returns the built-in table.
func DefaultCountryTable() *CountryTable {
	t := &CountryTable{codes: make(map[string]string, len(defaultCountries))}
	for name, code := range defaultCountries {
		t.Add(name, code)
	}
	return t
}

// LoadCountryTable reads a YAML mapping of country name to code and layers
// it over the built-in table.
func LoadCountryTable(path string) (*CountryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read country table: %w", err)
	}

	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse country table %s: %w", path, err)
	}

	t := DefaultCountryTable()
	for name, code := range extra {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 2 {
			return nil, fmt.Errorf("country table %s: code %q for %q is not two letters", path, code, name)
		}
		t.Add(name, code)
	}
	return t, nil
}

// Add registers or replaces a mapping.
func (t *CountryTable) Add(name, code string) {
	t.codes[foldCountry(name)] = code
}

// Lookup returns the code for a country name.
func (t *CountryTable) Lookup(name string) (string, bool) {
	code, ok := t.codes[foldCountry(name)]
	return code, ok
}

func foldCountry(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}
