package active_directory

import (
	"context"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/ldapclient"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

// BuildModifyRequest turns a write-set into one modify request so the
// directory applies every change or none of them.
func BuildModifyRequest(dn string, writes reconcile.WriteSet) *ldap.ModifyRequest {
	modReq := ldap.NewModifyRequest(dn, nil)
	for _, attr := range writes.Attributes() {
		if writes.IsClear(attr) {
			modReq.Replace(attr, []string{})
			continue
		}
		value, _ := writes.Value(attr)
		modReq.Replace(attr, []string{value})
	}
	return modReq
}

// ApplyWriteSet writes all attributes for a user in a single modify.
func ApplyWriteSet(ctx context.Context, client *ldapclient.LDAPClient, user *directory.LocalUser, writes reconcile.WriteSet, dryRun bool) error {
	if len(writes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	modReq := BuildModifyRequest(user.DN, writes)

	if dryRun {
		for _, attr := range writes.Attributes() {
			value, _ := writes.Value(attr)
			tools.Log.Infof("[DRY RUN] Would set %s on %s to %q", attr, user.PrincipalName, value)
		}
		return nil
	}

	if err := client.Conn.Modify(modReq); err != nil {
		entry := tools.Log.WithFields(map[string]interface{}{"upn": user.PrincipalName, "dn": user.DN})
		switch {
		case IsInsufficientAccess(err):
			entry.Warn("Bind account lacks write access on this user")
		case IsConstraintViolation(err):
			entry.Warn("Directory rejected one of the values")
		}
		return &directory.WriteError{
			PrincipalName: user.PrincipalName,
			DN:            user.DN,
			Err:           fmt.Errorf("modify %d attributes: %w", len(writes), err),
		}
	}

	tools.Log.WithFields(map[string]interface{}{
		"upn":        user.PrincipalName,
		"attributes": writes.Attributes(),
	}).Debug("Applied write-set")

	return nil
}
