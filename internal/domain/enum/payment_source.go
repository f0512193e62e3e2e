package enum

// PaymentSource records which path created a payment
type PaymentSource string

const (
	PaymentSourceManual PaymentSource = "manual"
	PaymentSourceImport PaymentSource = "import"
)

// ImportFormat is the shape of a bulk payment file
type ImportFormat string

const (
	// ImportFormatWide carries one policy per row with repeated
	// (date, receipt number, amount) column groups.
	ImportFormatWide ImportFormat = "wide"
	// ImportFormatPerRow carries one payment per row.
	ImportFormatPerRow ImportFormat = "per_row"
)

func (f ImportFormat) IsValid() bool {
	return f == ImportFormatWide || f == ImportFormatPerRow
}
