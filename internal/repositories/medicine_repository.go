package repositories

import (
	"context"
	"errors"
	"fmt"

	"clinic-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MedicineRepository struct {
	DB *pgxpool.Pool
}

func NewMedicineRepository(db *pgxpool.Pool) *MedicineRepository {
	return &MedicineRepository{DB: db}
}

// Create inserts a new catalog entry
func (r *MedicineRepository) Create(ctx context.Context, m *models.Medicine) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO medicines(name, generic_name, category, unit, reorder_level, prescription_required)
		 VALUES($1, $2, $3, $4, $5, $6)
		 RETURNING id, stock_quantity, created_at, updated_at`,
		m.Name, m.GenericName, m.Category, m.Unit, m.ReorderLevel, m.PrescriptionRequired,
	).Scan(&m.ID, &m.StockQuantity, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create medicine: %w", err)
	}
	return nil
}

// Get retrieves a medicine by ID
func (r *MedicineRepository) Get(ctx context.Context, id int) (*models.Medicine, error) {
	var m models.Medicine
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, COALESCE(generic_name, ''), COALESCE(category, ''), COALESCE(unit, ''),
		        reorder_level, prescription_required, stock_quantity, created_at, updated_at
		 FROM medicines WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.GenericName, &m.Category, &m.Unit,
		&m.ReorderLevel, &m.PrescriptionRequired, &m.StockQuantity, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "medicine", ID: id}
		}
		return nil, &models.PersistenceError{Op: "get medicine", Err: err}
	}
	return &m, nil
}

// List returns all medicines ordered by name
func (r *MedicineRepository) List(ctx context.Context) ([]*models.Medicine, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, COALESCE(generic_name, ''), COALESCE(category, ''), COALESCE(unit, ''),
		        reorder_level, prescription_required, stock_quantity, created_at, updated_at
		 FROM medicines ORDER BY name`,
	)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list medicines", Err: err}
	}
	defer rows.Close()

	var medicines []*models.Medicine
	for rows.Next() {
		var m models.Medicine
		err := rows.Scan(&m.ID, &m.Name, &m.GenericName, &m.Category, &m.Unit,
			&m.ReorderLevel, &m.PrescriptionRequired, &m.StockQuantity, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, &m)
	}

	return medicines, nil
}

// ListBelowReorderLevel returns medicines whose aggregate stock has fallen to
// or below their reorder threshold.
func (r *MedicineRepository) ListBelowReorderLevel(ctx context.Context) ([]*models.Medicine, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, COALESCE(generic_name, ''), COALESCE(category, ''), COALESCE(unit, ''),
		        reorder_level, prescription_required, stock_quantity, created_at, updated_at
		 FROM medicines
		 WHERE stock_quantity <= reorder_level
		 ORDER BY stock_quantity ASC`,
	)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list low stock", Err: err}
	}
	defer rows.Close()

	var medicines []*models.Medicine
	for rows.Next() {
		var m models.Medicine
		err := rows.Scan(&m.ID, &m.Name, &m.GenericName, &m.Category, &m.Unit,
			&m.ReorderLevel, &m.PrescriptionRequired, &m.StockQuantity, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, &m)
	}

	return medicines, nil
}
