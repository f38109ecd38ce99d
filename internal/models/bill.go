package models

import "time"

// BillSource records how the bill text reached the application.
type BillSource string

const (
	BillSourcePaste    BillSource = "paste"
	BillSourceTextFile BillSource = "text-file"
	BillSourcePDF      BillSource = "pdf"
)

// Bill is the legislative text under analysis. There is at most one live Bill per workspace.
type Bill struct {
	ID         string
	Title      string
	Content    string
	Source     BillSource
	UploadedAt time.Time
	// KeyPoints are filled in from the analysis clauses once the analysis completes.
	KeyPoints []KeyPoint
}

// KeyPoint is a categorized clause of a bill.
type KeyPoint struct {
	Title    string
	Summary  string
	Category Category
}

// WithKeyPoints returns a copy of the bill carrying points.
func (b Bill) WithKeyPoints(points []KeyPoint) Bill {
	b.KeyPoints = append([]KeyPoint(nil), points...)
	return b
}
