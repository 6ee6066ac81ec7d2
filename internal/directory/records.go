package directory

import (
	"strings"
)

// CloudUser is a read-only snapshot of a cloud directory account.
type CloudUser struct {
	ObjectID              string `json:"id"`
	PrincipalName         string `json:"userPrincipalName"`
	DisplayName           string `json:"displayName"`
	TelephoneNumber       string `json:"telephoneNumber,omitempty"`
	StreetAddress         string `json:"streetAddress,omitempty"`
	PostalCode            string `json:"postalCode,omitempty"`
	City                  string `json:"city,omitempty"`
	JobTitle              string `json:"jobTitle,omitempty"`
	Department            string `json:"department,omitempty"`
	CompanyName           string `json:"companyName,omitempty"`
	OnPremisesImmutableID string `json:"onPremisesImmutableId,omitempty"`
}

// LocalUser is an on-premises account as read for a single row. It is
// never cached across rows.
type LocalUser struct {
	PrincipalName string
	DN            string
	ObjectGUID    [16]byte
	DisplayName   string
	ManagerDN     string
	// Attributes holds the current single-valued attributes keyed by
	// LDAP attribute name.
	Attributes map[string]string
}

// Attr returns the current value of an attribute, or "" when unset.
func (u *LocalUser) Attr(name string) string {
	if u == nil || u.Attributes == nil {
		return ""
	}
	return u.Attributes[name]
}

// NormalizeDN lowercases and trims a distinguished name for comparisons.
func NormalizeDN(dn string) string {
	return strings.ToLower(strings.TrimSpace(dn))
}

// NormalizePrincipal lowercases and trims a principal name.
func NormalizePrincipal(upn string) string {
	return strings.ToLower(strings.TrimSpace(upn))
}
