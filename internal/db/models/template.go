package models

import "fmt"

// Verification flag values for the templates table. The flag records that a
// verification attempt concluded, not that the data source is valid: a failed
// attempt also sets it to 1 after rolling back the datasource hash.
const (
	// VerificationPending means no verification attempt has concluded for the
	// current data source
	VerificationPending = 0
	// VerificationAttempted means a verification attempt ran to completion
	VerificationAttempted = 1
)

// Template represents a document template and the verification state of its
// attached CSV data source
type Template struct {
	ID              string  `json:"id" gorm:"primaryKey"`
	Text            string  `json:"text" gorm:"type:text"`
	DatasourceMD5   *string `json:"datasource_md5,omitempty" gorm:"column:datasource_md5"`
	LastVerifiedMD5 *string `json:"last_verified_md5,omitempty" gorm:"column:last_verified_md5"`
	Verified        int     `json:"verified" gorm:"not null;default:0"`
}

// Image is a raster image attached to a template, stored base64-encoded
type Image struct {
	ID         string `json:"id" gorm:"primaryKey"`
	TemplateID string `json:"template_id" gorm:"not null;index"`
	Base64     string `json:"base64" gorm:"type:text"`
}

// Attempted reports whether a verification attempt has concluded for this
// template. It does not imply the data source is valid.
func (t *Template) Attempted() bool {
	return t.Verified == VerificationAttempted
}

// UpToDate reports whether the current data source is the one that was last
// verified successfully. This is the fast-path condition.
func (t *Template) UpToDate() bool {
	return t.Attempted() &&
		t.DatasourceMD5 != nil && t.LastVerifiedMD5 != nil &&
		*t.DatasourceMD5 == *t.LastVerifiedMD5
}

// DataFileName returns the durable on-disk name of the uploaded CSV for the
// given content hash: "{template_id}_{md5}.csv"
func (t *Template) DataFileName(md5 string) string {
	return fmt.Sprintf("%s_%s.csv", t.ID, md5)
}
