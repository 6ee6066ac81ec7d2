package active_directory

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/ldapclient"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

// userAttributes are the single-valued attributes copied into
// LocalUser.Attributes.
var userAttributes = []string{
	"telephoneNumber", "streetAddress", "postalCode", "title",
	"department", "l", "company", "c",
}

// GetUserByPrincipalName looks up exactly one user by userPrincipalName.
func GetUserByPrincipalName(ctx context.Context, client *ldapclient.LDAPClient, upn string) (*directory.LocalUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := fmt.Sprintf("(&(objectCategory=person)(objectClass=user)(userPrincipalName=%s))", ldap.EscapeFilter(upn))
	attributes := append([]string{
		"distinguishedName", "userPrincipalName", "objectGUID", "displayName", "manager",
	}, userAttributes...)

	searchReq := ldap.NewSearchRequest(
		client.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, 0, false,
		filter,
		attributes,
		nil,
	)

	result, err := client.Conn.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("LDAP search error for %s: %w", upn, err)
	}
	switch len(result.Entries) {
	case 0:
		return nil, &directory.NotFoundError{Source: directory.SourceLocal, PrincipalName: upn}
	case 1:
	default:
		return nil, fmt.Errorf("principal %s matches %d local accounts", upn, len(result.Entries))
	}

	entry := result.Entries[0]
	rawGUID := entry.GetRawAttributeValue("objectGUID")
	if len(rawGUID) != 16 {
		return nil, fmt.Errorf("principal %s has malformed objectGUID (%d bytes)", upn, len(rawGUID))
	}

	user := &directory.LocalUser{
		PrincipalName: entry.GetAttributeValue("userPrincipalName"),
		DN:            entry.DN,
		DisplayName:   entry.GetAttributeValue("displayName"),
		ManagerDN:     entry.GetAttributeValue("manager"),
		Attributes:    make(map[string]string, len(userAttributes)),
	}
	copy(user.ObjectGUID[:], rawGUID)
	if dn := entry.GetAttributeValue("distinguishedName"); dn != "" {
		user.DN = dn
	}
	for _, attr := range userAttributes {
		if v := entry.GetAttributeValue(attr); v != "" {
			user.Attributes[attr] = v
		}
	}

	tools.Log.WithFields(map[string]interface{}{
		"upn":  upn,
		"dn":   user.DN,
		"guid": tools.FormatGUID(rawGUID),
	}).Debug("Resolved local user")

	return user, nil
}
