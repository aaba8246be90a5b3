package repositories

import (
	"context"
	"errors"

	"clinic-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrescriptionRepository handles prescription data operations
type PrescriptionRepository struct {
	DB *pgxpool.Pool
}

func NewPrescriptionRepository(db *pgxpool.Pool) *PrescriptionRepository {
	return &PrescriptionRepository{DB: db}
}

// Create persists the prescription with its items in one transaction
func (r *PrescriptionRepository) Create(ctx context.Context, p *models.Prescription) (*models.Prescription, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "begin create prescription", Err: err}
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO prescriptions(patient_id, patient_name, patient_phone, practitioner_id,
		        status, valid_until, created_by)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		p.PatientID, p.PatientName, p.PatientPhone, p.PractitionerID,
		p.Status, p.ValidUntil, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, &models.PersistenceError{Op: "insert prescription", Err: err}
	}

	for i := range p.Items {
		it := &p.Items[i]
		err = tx.QueryRow(ctx,
			`INSERT INTO prescription_items(prescription_id, medicine_id, dosage, duration_days, quantity)
			 VALUES($1, $2, $3, $4, $5)
			 RETURNING id`,
			p.ID, it.MedicineID, it.Dosage, it.DurationDays, it.Quantity,
		).Scan(&it.ID)
		if err != nil {
			return nil, &models.PersistenceError{Op: "insert prescription item", Err: err}
		}
		it.PrescriptionID = p.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &models.PersistenceError{Op: "commit create prescription", Err: err}
	}
	return p, nil
}

// Get retrieves a prescription with its items
func (r *PrescriptionRepository) Get(ctx context.Context, id int) (*models.Prescription, error) {
	var p models.Prescription
	err := r.DB.QueryRow(ctx,
		`SELECT id, patient_id, patient_name, COALESCE(patient_phone, ''), practitioner_id,
		        status, valid_until, created_by, created_at
		 FROM prescriptions WHERE id = $1`, id,
	).Scan(&p.ID, &p.PatientID, &p.PatientName, &p.PatientPhone, &p.PractitionerID,
		&p.Status, &p.ValidUntil, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "prescription", ID: id}
		}
		return nil, &models.PersistenceError{Op: "get prescription", Err: err}
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, prescription_id, medicine_id, COALESCE(dosage, ''), duration_days,
		        quantity, is_billed, invoice_id
		 FROM prescription_items WHERE prescription_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, &models.PersistenceError{Op: "load prescription items", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var it models.PrescriptionItem
		err := rows.Scan(&it.ID, &it.PrescriptionID, &it.MedicineID, &it.Dosage,
			&it.DurationDays, &it.Quantity, &it.IsBilled, &it.InvoiceID)
		if err != nil {
			return nil, err
		}
		p.Items = append(p.Items, it)
	}
	return &p, nil
}

// ListActive returns active prescriptions, newest first
func (r *PrescriptionRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.Prescription, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx,
		`SELECT id, patient_id, patient_name, COALESCE(patient_phone, ''), practitioner_id,
		        status, valid_until, created_by, created_at
		 FROM prescriptions WHERE status = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		models.PrescriptionActive, limit, offset)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list prescriptions", Err: err}
	}
	defer rows.Close()

	var prescriptions []*models.Prescription
	for rows.Next() {
		var p models.Prescription
		err := rows.Scan(&p.ID, &p.PatientID, &p.PatientName, &p.PatientPhone, &p.PractitionerID,
			&p.Status, &p.ValidUntil, &p.CreatedBy, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		prescriptions = append(prescriptions, &p)
	}
	return prescriptions, nil
}

// ExpireLapsed flips active prescriptions past their validity window to
// expired. Idempotent; rerunning matches nothing new.
func (r *PrescriptionRepository) ExpireLapsed(ctx context.Context) (int, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE prescriptions SET status = $1
		 WHERE status = $2 AND valid_until < NOW()`,
		models.PrescriptionExpired, models.PrescriptionActive)
	if err != nil {
		return 0, &models.PersistenceError{Op: "expire prescriptions", Err: err}
	}
	return int(tag.RowsAffected()), nil
}
