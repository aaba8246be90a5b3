package repositories

import (
	"context"
	"errors"

	"clinic-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PractitionerRepository handles practitioner data operations
type PractitionerRepository struct {
	DB *pgxpool.Pool
}

func NewPractitionerRepository(db *pgxpool.Pool) *PractitionerRepository {
	return &PractitionerRepository{DB: db}
}

const practitionerColumns = `id, name, department_id, COALESCE(specialization, ''),
	employment_type, revenue_percentage, is_active, created_at`

func scanPractitioner(row pgx.Row) (*models.Practitioner, error) {
	var p models.Practitioner
	err := row.Scan(&p.ID, &p.Name, &p.DepartmentID, &p.Specialization,
		&p.EmploymentType, &p.RevenuePercentage, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PractitionerRepository) Get(ctx context.Context, id int) (*models.Practitioner, error) {
	p, err := scanPractitioner(r.DB.QueryRow(ctx,
		`SELECT `+practitionerColumns+` FROM practitioners WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "practitioner", ID: id}
		}
		return nil, &models.PersistenceError{Op: "get practitioner", Err: err}
	}
	return p, nil
}

// List returns all active practitioners
func (r *PractitionerRepository) List(ctx context.Context) ([]*models.Practitioner, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+practitionerColumns+` FROM practitioners WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list practitioners", Err: err}
	}
	defer rows.Close()

	var practitioners []*models.Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		practitioners = append(practitioners, p)
	}
	return practitioners, nil
}

// GetMany loads the practitioners named by ids into a map. Missing ids are
// simply absent; the revenue aggregator treats those invoices as unattributed.
func (r *PractitionerRepository) GetMany(ctx context.Context, ids []int) (map[int]*models.Practitioner, error) {
	out := make(map[int]*models.Practitioner, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.DB.Query(ctx,
		`SELECT `+practitionerColumns+` FROM practitioners WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, &models.PersistenceError{Op: "get practitioners", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, nil
}

func (r *PractitionerRepository) Create(ctx context.Context, p *models.Practitioner) (*models.Practitioner, error) {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO practitioners(name, department_id, specialization, employment_type, revenue_percentage, is_active)
		 VALUES($1, $2, $3, $4, $5, TRUE)
		 RETURNING id, is_active, created_at`,
		p.Name, p.DepartmentID, p.Specialization, p.EmploymentType, p.RevenuePercentage,
	).Scan(&p.ID, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, &models.PersistenceError{Op: "create practitioner", Err: err}
	}
	return p, nil
}
