package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// DocumentService renders invoices and reports into downloadable documents.
type DocumentService struct {
	Invoices   *InvoiceService
	ClinicName string
}

func NewDocumentService(invoices *InvoiceService, clinicName string) *DocumentService {
	return &DocumentService{Invoices: invoices, ClinicName: clinicName}
}

// InvoicePDF renders a printable invoice.
func (s *DocumentService) InvoicePDF(ctx context.Context, invoiceID int) ([]byte, error) {
	inv, err := s.Invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, s.ClinicName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Invoice %s | %s", inv.InvoiceNumber, inv.IssueDate.Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Customer box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Billed To", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", inv.CustomerName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", inv.CustomerPhone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Type: %s", inv.Type), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Due: %s", inv.DueDate.Format("02-Jan-2006")), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Items table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Tax", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		desc := it.Description
		if len(desc) > 42 {
			desc = desc[:39] + "..."
		}
		pdf.CellFormat(80, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.Itoa(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", it.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", it.TaxAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", it.TotalPrice), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Totals
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(160, 7, "Subtotal", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", inv.Subtotal), "1", 1, "R", false, 0, "")
	if inv.Discount > 0 {
		pdf.CellFormat(160, 7, "Discount", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("-%.2f", inv.Discount), "1", 1, "R", false, 0, "")
	}
	pdf.CellFormat(160, 7, "Tax", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", inv.Tax), "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(160, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", inv.Total), "1", 1, "R", false, 0, "")
	pdf.Ln(5)

	// Payment state
	if inv.BalanceDue > 0 {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	stateText := fmt.Sprintf("Balance Due: Rs. %.2f", inv.BalanceDue)
	if inv.BalanceDue <= 0 {
		stateText = "FULLY PAID"
	}
	pdf.CellFormat(190, 10, stateText, "1", 1, "C", true, 0, "")

	if len(inv.Payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(190, 7, "Payments", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, p := range inv.Payments {
			pdf.CellFormat(63, 6, p.PaidAt.Format("02-Jan-2006 03:04 PM"), "1", 0, "L", false, 0, "")
			pdf.CellFormat(63, 6, string(p.Method), "1", 0, "C", false, 0, "")
			pdf.CellFormat(64, 6, fmt.Sprintf("%.2f", p.Amount), "1", 1, "R", false, 0, "")
		}
	}

	pdf.SetFont("Arial", "I", 8)
	pdf.SetY(-20)
	pdf.CellFormat(190, 5, fmt.Sprintf("Generated %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RevenueCSV exports a revenue report's daily buckets.
func (s *DocumentService) RevenueCSV(report *models.RevenueReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"date", "revenue", "collected", "invoice_count"}); err != nil {
		return nil, err
	}
	for _, d := range report.ByDay {
		record := []string{
			d.Date,
			strconv.FormatFloat(d.Revenue, 'f', 2, 64),
			strconv.FormatFloat(d.Collected, 'f', 2, 64),
			strconv.Itoa(d.InvoiceCount),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
