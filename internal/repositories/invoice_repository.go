package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinic-backend/internal/models"
	"clinic-backend/internal/timeutil"
	"clinic-backend/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceRepository owns the invoice aggregate: its number sequence, its line
// items and its payments. Creation and payment recording are single
// transactions so a half-applied invoice is never observable.
type InvoiceRepository struct {
	DB      *pgxpool.Pool
	Batches *BatchRepository
}

func NewInvoiceRepository(db *pgxpool.Pool, batches *BatchRepository) *InvoiceRepository {
	return &InvoiceRepository{DB: db, Batches: batches}
}

// NextSequence atomically advances the per-(type, year, month) counter and
// returns the new value. The upsert is a single statement; two concurrent
// creations can never read the same value.
func (r *InvoiceRepository) NextSequence(ctx context.Context, tx pgx.Tx, t models.InvoiceType, year, month int) (int, error) {
	var seq int
	err := tx.QueryRow(ctx,
		`INSERT INTO invoice_counters(invoice_type, year, month, last_seq)
		 VALUES($1, $2, $3, 1)
		 ON CONFLICT (invoice_type, year, month)
		 DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		 RETURNING last_seq`,
		t, year, month,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return seq, nil
}

// Create persists the invoice with its line items, deducting stock for every
// medicine item that names a batch. Everything runs in one transaction: a
// failed deduction rolls back earlier deductions and no invoice row survives.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "begin create invoice", Err: err}
	}
	defer tx.Rollback(ctx)

	issue := timeutil.ToIST(inv.IssueDate)
	seq, err := r.NextSequence(ctx, tx, inv.Type, issue.Year(), int(issue.Month()))
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = models.FormatInvoiceNumber(inv.Type, issue.Year(), issue.Month(), seq)

	// Deduct stock before touching invoice rows so a shortage is the common
	// failure and carries batch context.
	for _, it := range inv.Items {
		if it.Kind != models.ItemMedicine || it.BatchID == nil {
			continue
		}
		if it.MedicineID == nil {
			return nil, models.NewValidationError("items", "medicine item missing medicine_id")
		}
		if _, err := r.Batches.DeductInTx(ctx, tx, *it.MedicineID, *it.BatchID, it.Quantity, inv.CreatedBy); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO invoices(invoice_number, invoice_type, status, patient_id, customer_name,
		        customer_phone, practitioner_id, department_id, prescription_id, appointment_id,
		        source_sale_id, issue_date, due_date, subtotal, discount, tax, total,
		        amount_paid, balance_due, created_by)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 RETURNING id, created_at, updated_at`,
		inv.InvoiceNumber, inv.Type, inv.Status, inv.PatientID, inv.CustomerName,
		inv.CustomerPhone, inv.PractitionerID, inv.DepartmentID, inv.PrescriptionID, inv.AppointmentID,
		inv.SourceSaleID, inv.IssueDate, inv.DueDate, inv.Subtotal, inv.Discount, inv.Tax, inv.Total,
		inv.AmountPaid, inv.BalanceDue, inv.CreatedBy,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, &models.PersistenceError{Op: "insert invoice", Err: err}
	}

	for i := range inv.Items {
		it := &inv.Items[i]
		err = tx.QueryRow(ctx,
			`INSERT INTO invoice_items(invoice_id, kind, description, reference_id, medicine_id,
			        batch_id, quantity, unit_price, tax_rate, tax_amount, total_price)
			 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id`,
			inv.ID, it.Kind, it.Description, it.ReferenceID, it.MedicineID,
			it.BatchID, it.Quantity, it.UnitPrice, it.TaxRate, it.TaxAmount, it.TotalPrice,
		).Scan(&it.ID)
		if err != nil {
			return nil, &models.PersistenceError{Op: "insert invoice item", Err: err}
		}
		it.InvoiceID = inv.ID
	}

	for i := range inv.Payments {
		p := &inv.Payments[i]
		if err := r.insertPayment(ctx, tx, inv.ID, p); err != nil {
			return nil, err
		}
	}

	if inv.PrescriptionID != nil {
		if err := r.stampPrescription(ctx, tx, *inv.PrescriptionID, inv); err != nil {
			return nil, err
		}
	}

	if inv.Status == models.StatusPaid && inv.SourceSaleID != nil {
		if err := completeSaleRecord(ctx, tx, *inv.SourceSaleID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &models.PersistenceError{Op: "commit create invoice", Err: err}
	}
	return inv, nil
}

// stampPrescription marks the converted items billed and, once every item is
// billed, removes the source prescription. The delete reproduces the
// long-standing dispensing behavior; the items keep their invoice stamp until
// the cascade takes them.
func (r *InvoiceRepository) stampPrescription(ctx context.Context, tx pgx.Tx, prescriptionID int, inv *models.Invoice) error {
	for _, it := range inv.Items {
		if it.Kind != models.ItemMedicine || it.ReferenceID == nil {
			continue
		}
		_, err := tx.Exec(ctx,
			`UPDATE prescription_items SET is_billed = TRUE, invoice_id = $1
			 WHERE id = $2 AND prescription_id = $3`,
			inv.ID, *it.ReferenceID, prescriptionID)
		if err != nil {
			return &models.PersistenceError{Op: "stamp prescription item", Err: err}
		}
	}

	var unbilled int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription_items
		 WHERE prescription_id = $1 AND is_billed = FALSE`, prescriptionID,
	).Scan(&unbilled)
	if err != nil {
		return &models.PersistenceError{Op: "count unbilled items", Err: err}
	}

	if unbilled == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, prescriptionID); err != nil {
			return &models.PersistenceError{Op: "delete converted prescription", Err: err}
		}
	} else {
		_, err := tx.Exec(ctx,
			`UPDATE prescriptions SET status = $1 WHERE id = $2`,
			models.PrescriptionDispensed, prescriptionID)
		if err != nil {
			return &models.PersistenceError{Op: "mark prescription dispensed", Err: err}
		}
	}
	return nil
}

// AddPayment appends a payment under a row lock on the invoice, re-derives
// the status and rolls the paid total forward. Two simultaneous payments
// serialize on the lock, so the second one sees the first one's balance.
func (r *InvoiceRepository) AddPayment(ctx context.Context, invoiceID int, p *models.Payment) (*models.Invoice, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "begin add payment", Err: err}
	}
	defer tx.Rollback(ctx)

	var total, amountPaid float64
	var status models.InvoiceStatus
	var dueDate time.Time
	var sourceSaleID *int
	err = tx.QueryRow(ctx,
		`SELECT total, amount_paid, status, due_date, source_sale_id
		 FROM invoices WHERE id = $1 FOR UPDATE`, invoiceID,
	).Scan(&total, &amountPaid, &status, &dueDate, &sourceSaleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "invoice", ID: invoiceID}
		}
		return nil, &models.PersistenceError{Op: "lock invoice", Err: err}
	}

	if status.IsTerminal() {
		return nil, models.NewValidationError("status", fmt.Sprintf("invoice is %s", status))
	}

	newPaid := utils.Round2(amountPaid + p.Amount)
	if newPaid > total {
		return nil, &models.OverpaymentError{
			InvoiceID:  invoiceID,
			Total:      total,
			AmountPaid: amountPaid,
			Attempted:  p.Amount,
		}
	}

	if err := r.insertPayment(ctx, tx, invoiceID, p); err != nil {
		return nil, err
	}

	newStatus := models.DeriveStatus(total, newPaid, dueDate, timeutil.Now())
	_, err = tx.Exec(ctx,
		`UPDATE invoices
		 SET amount_paid = $1, balance_due = $2, status = $3, updated_at = NOW()
		 WHERE id = $4`,
		newPaid, utils.Round2(total-newPaid), newStatus, invoiceID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "update invoice totals", Err: err}
	}

	if newStatus == models.StatusPaid && sourceSaleID != nil {
		if err := completeSaleRecord(ctx, tx, *sourceSaleID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &models.PersistenceError{Op: "commit add payment", Err: err}
	}

	return r.Get(ctx, invoiceID)
}

// SetTerminalStatus moves an invoice to cancelled or refunded by explicit
// operator action. Terminal states never transition again.
func (r *InvoiceRepository) SetTerminalStatus(ctx context.Context, invoiceID int, status models.InvoiceStatus) (*models.Invoice, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status NOT IN ($3, $4)`,
		status, invoiceID, models.StatusCancelled, models.StatusRefunded)
	if err != nil {
		return nil, &models.PersistenceError{Op: "set terminal status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, invoiceID); err != nil {
			return nil, err
		}
		return nil, models.NewValidationError("status", "invoice is already in a terminal state")
	}
	return r.Get(ctx, invoiceID)
}

// MarkOverdue flips lapsed non-terminal, non-paid invoices to overdue.
// Idempotent; safe to run concurrently with itself.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context) (int, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = NOW()
		 WHERE due_date < NOW() AND status IN ($2, $3)`,
		models.StatusOverdue, models.StatusIssued, models.StatusPartial)
	if err != nil {
		return 0, &models.PersistenceError{Op: "mark overdue", Err: err}
	}
	return int(tag.RowsAffected()), nil
}

const invoiceColumns = `id, invoice_number, invoice_type, status, patient_id, customer_name,
	COALESCE(customer_phone, ''), practitioner_id, department_id, prescription_id,
	appointment_id, source_sale_id, issue_date, due_date, subtotal, discount, tax, total,
	amount_paid, balance_due, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Type, &inv.Status, &inv.PatientID,
		&inv.CustomerName, &inv.CustomerPhone, &inv.PractitionerID, &inv.DepartmentID,
		&inv.PrescriptionID, &inv.AppointmentID, &inv.SourceSaleID, &inv.IssueDate,
		&inv.DueDate, &inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total,
		&inv.AmountPaid, &inv.BalanceDue, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Get retrieves an invoice with its items and payments
func (r *InvoiceRepository) Get(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := scanInvoice(r.DB.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "invoice", ID: id}
		}
		return nil, &models.PersistenceError{Op: "get invoice", Err: err}
	}

	if err := r.loadItemsAndPayments(ctx, []*models.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoices matching the filter, newest first
func (r *InvoiceRepository) List(ctx context.Context, filter *models.InvoiceFilter) ([]*models.Invoice, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("invoice_type = $%d", argNum))
		args = append(args, filter.Type)
		argNum++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}
	if filter.PractitionerID != nil {
		conditions = append(conditions, fmt.Sprintf("practitioner_id = $%d", argNum))
		args = append(args, *filter.PractitionerID)
		argNum++
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", argNum))
		args = append(args, *filter.DepartmentID)
		argNum++
	}
	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argNum))
		args = append(args, *filter.PatientID)
		argNum++
	}
	if filter.Start != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date >= $%d", argNum))
		args = append(args, *filter.Start)
		argNum++
	}
	if filter.End != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date <= $%d", argNum))
		args = append(args, *filter.End)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, whereClause, argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list invoices", Err: err}
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// ListForRevenue loads the full aggregates (items and payments included) for
// every invoice issued inside the window, oldest first. The aggregator needs
// the items to split pharmacy-sourced revenue from attributable revenue.
func (r *InvoiceRepository) ListForRevenue(ctx context.Context, filter *models.RevenueFilter) ([]*models.Invoice, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	conditions = append(conditions, fmt.Sprintf("issue_date >= $%d", argNum))
	args = append(args, filter.Start)
	argNum++
	conditions = append(conditions, fmt.Sprintf("issue_date <= $%d", argNum))
	args = append(args, filter.End)
	argNum++
	conditions = append(conditions, fmt.Sprintf("status NOT IN ($%d, $%d)", argNum, argNum+1))
	args = append(args, models.StatusCancelled, models.StatusRefunded)
	argNum += 2

	if filter.PractitionerID != nil {
		conditions = append(conditions, fmt.Sprintf("practitioner_id = $%d", argNum))
		args = append(args, *filter.PractitionerID)
		argNum++
	}
	if filter.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", argNum))
		args = append(args, *filter.DepartmentID)
		argNum++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("invoice_type = $%d", argNum))
		args = append(args, filter.Type)
		argNum++
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY issue_date ASC, id ASC`,
		invoiceColumns, strings.Join(conditions, " AND "))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list invoices for revenue", Err: err}
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := r.loadItemsAndPayments(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *InvoiceRepository) loadItemsAndPayments(ctx context.Context, invoices []*models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	byID := make(map[int]*models.Invoice, len(invoices))
	ids := make([]int, 0, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
		ids = append(ids, inv.ID)
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, kind, COALESCE(description, ''), reference_id, medicine_id,
		        batch_id, quantity, unit_price, tax_rate, tax_amount, total_price
		 FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return &models.PersistenceError{Op: "load invoice items", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var it models.LineItem
		err := rows.Scan(&it.ID, &it.InvoiceID, &it.Kind, &it.Description, &it.ReferenceID,
			&it.MedicineID, &it.BatchID, &it.Quantity, &it.UnitPrice, &it.TaxRate,
			&it.TaxAmount, &it.TotalPrice)
		if err != nil {
			return err
		}
		if inv, ok := byID[it.InvoiceID]; ok {
			inv.Items = append(inv.Items, it)
		}
	}

	payRows, err := r.DB.Query(ctx,
		`SELECT id, invoice_id, amount, method, COALESCE(reference, ''), collected_by, paid_at, created_at
		 FROM payments WHERE invoice_id = ANY($1) ORDER BY paid_at, id`, ids)
	if err != nil {
		return &models.PersistenceError{Op: "load payments", Err: err}
	}
	defer payRows.Close()
	for payRows.Next() {
		var p models.Payment
		err := payRows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference,
			&p.CollectedBy, &p.PaidAt, &p.CreatedAt)
		if err != nil {
			return err
		}
		if inv, ok := byID[p.InvoiceID]; ok {
			inv.Payments = append(inv.Payments, p)
		}
	}

	return nil
}

func (r *InvoiceRepository) insertPayment(ctx context.Context, tx pgx.Tx, invoiceID int, p *models.Payment) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO payments(invoice_id, amount, method, reference, collected_by, paid_at)
		 VALUES($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		invoiceID, p.Amount, p.Method, p.Reference, p.CollectedBy, p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return &models.PersistenceError{Op: "insert payment", Err: err}
	}
	p.InvoiceID = invoiceID
	return nil
}

func completeSaleRecord(ctx context.Context, tx pgx.Tx, saleID int) error {
	_, err := tx.Exec(ctx,
		`UPDATE sale_records SET status = 'completed', updated_at = NOW() WHERE id = $1`,
		saleID)
	if err != nil {
		return &models.PersistenceError{Op: "complete sale record", Err: err}
	}
	return nil
}
