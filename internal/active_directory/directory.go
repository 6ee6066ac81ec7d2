package active_directory

import (
	"context"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/ldapclient"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
)

// Directory exposes Active Directory as the local side of a sync run.
type Directory struct {
	Client *ldapclient.LDAPClient
	DryRun bool
}

func (d *Directory) GetUser(ctx context.Context, upn string) (*directory.LocalUser, error) {
	return GetUserByPrincipalName(ctx, d.Client, upn)
}

func (d *Directory) Apply(ctx context.Context, user *directory.LocalUser, writes reconcile.WriteSet) error {
	return ApplyWriteSet(ctx, d.Client, user, writes, d.DryRun)
}
