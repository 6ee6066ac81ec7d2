package active_directory

import (
	"errors"

	"github.com/go-ldap/ldap/v3"
)

// IsInsufficientAccess reports whether err is an LDAP access denial, which
// usually means the bind account lacks write rights on the target OU.
func IsInsufficientAccess(err error) bool {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return ldapErr.ResultCode == ldap.LDAPResultInsufficientAccessRights
	}
	return false
}

// IsConstraintViolation reports whether the directory rejected a value,
// for example a country code outside the schema's allowed set.
func IsConstraintViolation(err error) bool {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return ldapErr.ResultCode == ldap.LDAPResultConstraintViolation ||
			ldapErr.ResultCode == ldap.LDAPResultInvalidAttributeSyntax
	}
	return false
}
