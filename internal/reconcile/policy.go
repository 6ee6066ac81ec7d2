package reconcile

import (
	"fmt"
	"strings"
)

// OverwritePolicy decides what an empty cloud field does to the local value.
type OverwritePolicy string

const (
	// NonDestructive leaves local values alone when the cloud field is empty.
	NonDestructive OverwritePolicy = "non-destructive"
	// ForceOverwrite clears local values when the cloud field is empty.
	ForceOverwrite OverwritePolicy = "force-overwrite"
)

// CountryFallback decides what happens to country text missing from the table.
type CountryFallback string

const (
	CountryPassthrough CountryFallback = "passthrough"
	CountrySkip        CountryFallback = "skip"
)

// ManagerAbsentPolicy decides what happens to the local manager link when
// the cloud account has no manager.
type ManagerAbsentPolicy string

const (
	ManagerKeep  ManagerAbsentPolicy = "keep"
	ManagerClear ManagerAbsentPolicy = "clear"
)

func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch p := OverwritePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case NonDestructive, ForceOverwrite:
		return p, nil
	case "":
		return NonDestructive, nil
	}
	return "", fmt.Errorf("unknown overwrite policy %q (want %s or %s)", s, NonDestructive, ForceOverwrite)
}

func ParseCountryFallback(s string) (CountryFallback, error) {
	switch p := CountryFallback(strings.ToLower(strings.TrimSpace(s))); p {
	case CountryPassthrough, CountrySkip:
		return p, nil
	case "":
		return CountrySkip, nil
	}
	return "", fmt.Errorf("unknown country fallback %q (want %s or %s)", s, CountryPassthrough, CountrySkip)
}

func ParseManagerAbsentPolicy(s string) (ManagerAbsentPolicy, error) {
	switch p := ManagerAbsentPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ManagerKeep, ManagerClear:
		return p, nil
	case "":
		return ManagerKeep, nil
	}
	return "", fmt.Errorf("unknown manager policy %q (want %s or %s)", s, ManagerKeep, ManagerClear)
}
