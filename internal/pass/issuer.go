package pass

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"gatepass/internal/gatepass"
)

// RecordSource resolves records for rendering. The issuer only reads.
type RecordSource interface {
	Get(ctx context.Context, id string) (gatepass.ExitRecord, error)
}

// Issuer renders printable gate passes. Documents are generated fresh per
// request and composed fully in memory before a single byte is sent, so a
// render failure is always a structured error and never a truncated body.
type Issuer struct {
	records  RecordSource
	baseURL  string
	logoPath string
	loc      *time.Location
}

// NewIssuer creates an issuer. The logo is optional; a missing file leaves
// the header box without an image.
func NewIssuer(records RecordSource, baseURL, logoPath string, loc *time.Location) *Issuer {
	if loc == nil {
		loc = time.Local
	}
	return &Issuer{records: records, baseURL: baseURL, logoPath: logoPath, loc: loc}
}

// VerifyURL builds the link embedded in the QR code. Scanning it re-resolves
// the live record, so the printed pass is never the source of truth.
func VerifyURL(baseURL, recordID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/verify-pass/" + recordID
}

// Render produces the PDF for a record and the filename to serve it under.
// Unknown ids surface gatepass.ErrRecordNotFound before any rendering starts.
func (i *Issuer) Render(ctx context.Context, id string) ([]byte, string, error) {
	rec, err := i.records.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	qrPNG, err := qrcode.Encode(VerifyURL(i.baseURL, rec.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, "", fmt.Errorf("qr encode: %w", err)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(50, 50, 50)
	pdf.AddPage()

	// Header box
	pdf.SetLineWidth(1.5)
	pdf.RoundedRect(40, 40, 520, 100, 20, "1234", "D")

	if i.logoPath != "" {
		if _, err := os.Stat(i.logoPath); err == nil {
			pdf.ImageOptions(i.logoPath, 55, 50, 110, 0, false, fpdf.ImageOptions{}, 0, "")
		}
	}

	pdf.SetTextColor(15, 23, 42)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetXY(100, 75)
	pdf.CellFormat(450, 30, "HOSTEL GATE PASS", "", 0, "R", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("verify-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("verify-qr", 400, 220, 130, 130, false, opts, 0, "")

	// Student details
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 15)
	x, y, w := 60.0, 170.0, 300.0

	line := func(text string) {
		pdf.SetXY(x, y)
		pdf.MultiCell(w, 20, text, "", "L", false)
		y = pdf.GetY() + 6
	}
	line("Student: " + rec.Name)
	line("Room: " + rec.Room)
	line("Reason: " + rec.Reason)
	line("Category: " + string(rec.ReasonCategory))
	line("Exit Time: " + i.formatTime(rec.ExitTime))
	if rec.EntryTime != nil {
		line("Entry Time: " + i.formatTime(*rec.EntryTime))
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(400, 360)
	pdf.CellFormat(130, 14, "Scan to Verify", "", 0, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetXY(50, 500)
	pdf.CellFormat(495, 16, "Authorized Gate Pass", "", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("pdf render: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("gatepass_%s.pdf", rec.StudentID), nil
}

func (i *Issuer) formatTime(t time.Time) string {
	return t.In(i.loc).Format("02/01/2006, 3:04:05 pm")
}
