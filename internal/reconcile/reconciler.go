package reconcile

import (
	"strings"

	"github.com/matthewdavidson09/cloud-attribute-sync/internal/directory"
)

// Local attribute names written by the reconciler.
const (
	AttrOfficePhone   = "telephoneNumber"
	AttrStreetAddress = "streetAddress"
	AttrPostalCode    = "postalCode"
	AttrTitle         = "title"
	AttrDepartment    = "department"
	AttrCity          = "l"
	AttrCompany       = "company"
	AttrCountry       = "c"
	AttrManager       = "manager"
)

// ManagedAttributes lists every attribute the reconciler may write.
var ManagedAttributes = []string{
	AttrOfficePhone, AttrStreetAddress, AttrPostalCode, AttrTitle,
	AttrDepartment, AttrCity, AttrCompany, AttrCountry, AttrManager,
}

type fieldMapping struct {
	attr  string
	value func(*directory.CloudUser) string
}

var fieldMappings = []fieldMapping{
	{AttrOfficePhone, func(u *directory.CloudUser) string { return u.TelephoneNumber }},
	{AttrStreetAddress, func(u *directory.CloudUser) string { return u.StreetAddress }},
	{AttrPostalCode, func(u *directory.CloudUser) string { return u.PostalCode }},
	{AttrTitle, func(u *directory.CloudUser) string { return u.JobTitle }},
	{AttrDepartment, func(u *directory.CloudUser) string { return u.Department }},
	{AttrCity, func(u *directory.CloudUser) string { return u.City }},
	{AttrCompany, func(u *directory.CloudUser) string { return u.CompanyName }},
}

// Options select between the policies the source scripts disagree on.
type Options struct {
	Overwrite       OverwritePolicy
	CountryFallback CountryFallback
	ManagerAbsent   ManagerAbsentPolicy
	Countries       *CountryTable
}

// Input is everything known about one CSV row after lookups.
type Input struct {
	Cloud *directory.CloudUser
	Local *directory.LocalUser

	// CloudManager is nil when the cloud account has no manager.
	CloudManager *directory.CloudUser
	// LocalManager is the local account matching CloudManager, nil when
	// it could not be resolved.
	LocalManager *directory.LocalUser
	// ManagerUnknown is set when a manager lookup failed for a reason
	// other than absence. The manager link is then left untouched.
	ManagerUnknown bool

	CountryText string
}

// Result is the outcome of Compute.
type Result struct {
	Writes      WriteSet
	ImmutableID string
	// Diagnostics are non-fatal problems: unresolved manager, unmapped
	// country.
	Diagnostics []error
}

// Reconciler computes attribute write-sets. It performs no I/O.
type Reconciler struct {
	opts Options
}

func New(opts Options) *Reconciler {
	if opts.Overwrite == "" {
		opts.Overwrite = NonDestructive
	}
	if opts.CountryFallback == "" {
		opts.CountryFallback = CountrySkip
	}
	if opts.ManagerAbsent == "" {
		opts.ManagerAbsent = ManagerKeep
	}
	if opts.Countries == nil {
		opts.Countries = DefaultCountryTable()
	}
	return &Reconciler{opts: opts}
}

// Compute returns the writes needed to bring in.Local in line with
// in.Cloud. Attributes whose local value already matches are left out.
// Inputs are never modified.
func (r *Reconciler) Compute(in Input) (Result, error) {
	if in.Local == nil {
		return Result{}, &directory.MissingInputError{Field: "local record"}
	}
	if in.Cloud == nil {
		return Result{}, &directory.MissingInputError{Field: "cloud record"}
	}

	res := Result{
		Writes:      WriteSet{},
		ImmutableID: directory.ImmutableID(in.Local.ObjectGUID),
	}

	for _, m := range fieldMappings {
		r.plan(res.Writes, in.Local, m.attr, strings.TrimSpace(m.value(in.Cloud)))
	}

	country, err := r.country(in.CountryText)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, err)
	}
	if country != "" || err == nil {
		r.plan(res.Writes, in.Local, AttrCountry, country)
	}

	if diag := r.planManager(res.Writes, in); diag != nil {
		res.Diagnostics = append(res.Diagnostics, diag)
	}

	return res, nil
}

func (r *Reconciler) plan(ws WriteSet, local *directory.LocalUser, attr, value string) {
	current := local.Attr(attr)
	if value == "" {
		if r.opts.Overwrite == ForceOverwrite && current != "" {
			ws.clear(attr)
		}
		return
	}
	if value != current {
		ws.set(attr, value)
	}
}

// country maps the CSV text to a code. An unmapped name yields a
// MappingError together with the raw text under passthrough, or "" under
// skip.
func (r *Reconciler) country(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if code, ok := r.opts.Countries.Lookup(text); ok {
		return code, nil
	}
	mapErr := &directory.MappingError{Country: text}
	if r.opts.CountryFallback == CountryPassthrough {
		return text, mapErr
	}
	return "", mapErr
}

func (r *Reconciler) planManager(ws WriteSet, in Input) error {
	current := in.Local.ManagerDN

	switch {
	case in.ManagerUnknown:
		return nil
	case in.CloudManager == nil:
		if r.opts.ManagerAbsent == ManagerClear && current != "" {
			ws.clear(AttrManager)
		}
		return nil
	case in.LocalManager == nil:
		return &directory.NotFoundError{Source: directory.SourceLocal, PrincipalName: in.CloudManager.PrincipalName}
	}

	if directory.NormalizeDN(in.LocalManager.DN) != directory.NormalizeDN(current) {
		ws.set(AttrManager, in.LocalManager.DN)
	}
	return nil
}
