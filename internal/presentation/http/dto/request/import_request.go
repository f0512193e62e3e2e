package request

// ImportPaymentsRequest is the form half of an import upload. The file
// itself arrives as the multipart "file" part, or as pasted text.
type ImportPaymentsRequest struct {
	Format        string `form:"format"`
	FieldMap      string `form:"field_map"`
	AllowOverride bool   `form:"allow_override"`
	Text          string `form:"text"`
}
