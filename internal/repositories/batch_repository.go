package repositories

import (
	"context"
	"errors"
	"fmt"

	"clinic-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchRepository owns per-batch quantity. Every quantity change goes through
// one of its methods; deductions are single conditional updates so two racing
// sales can never both drain the same stock.
type BatchRepository struct {
	DB *pgxpool.Pool
}

func NewBatchRepository(db *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{DB: db}
}

const batchColumns = `id, medicine_id, batch_number, expiry_date, quantity_on_hand,
	purchase_price, selling_price, supplier_id, received_at, created_at`

func scanBatch(row pgx.Row) (*models.Batch, error) {
	var b models.Batch
	err := row.Scan(&b.ID, &b.MedicineID, &b.BatchNumber, &b.ExpiryDate, &b.QuantityOnHand,
		&b.PurchasePrice, &b.SellingPrice, &b.SupplierID, &b.ReceivedAt, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Get retrieves a batch by ID
func (r *BatchRepository) Get(ctx context.Context, id int) (*models.Batch, error) {
	b, err := scanBatch(r.DB.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "batch", ID: id}
		}
		return nil, &models.PersistenceError{Op: "get batch", Err: err}
	}
	return b, nil
}

// ListByMedicine returns all batches of a medicine, nearest expiry first
func (r *BatchRepository) ListByMedicine(ctx context.Context, medicineID int) ([]*models.Batch, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+batchColumns+` FROM batches
		 WHERE medicine_id = $1
		 ORDER BY expiry_date ASC, received_at ASC`, medicineID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list batches", Err: err}
	}
	defer rows.Close()

	var batches []*models.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// Deduct removes quantity from a batch and the medicine's aggregate counter
// as one transaction.
func (r *BatchRepository) Deduct(ctx context.Context, medicineID, batchID, quantity, actorID int) (*models.BatchSnapshot, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "begin deduct", Err: err}
	}
	defer tx.Rollback(ctx)

	snap, err := r.DeductInTx(ctx, tx, medicineID, batchID, quantity, actorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &models.PersistenceError{Op: "commit deduct", Err: err}
	}
	return snap, nil
}

// DeductInTx performs the conditional decrement inside an existing
// transaction. The quantity check and the decrement are one statement, so a
// lost race shows up as zero rows, never as negative stock.
func (r *BatchRepository) DeductInTx(ctx context.Context, tx pgx.Tx, medicineID, batchID, quantity, actorID int) (*models.BatchSnapshot, error) {
	var snap models.BatchSnapshot
	err := tx.QueryRow(ctx,
		`UPDATE batches
		 SET quantity_on_hand = quantity_on_hand - $1
		 WHERE id = $2 AND medicine_id = $3 AND quantity_on_hand >= $1
		 RETURNING id, medicine_id, batch_number, quantity_on_hand`,
		quantity, batchID, medicineID,
	).Scan(&snap.BatchID, &snap.MedicineID, &snap.BatchNumber, &snap.QuantityOnHand)

	if errors.Is(err, pgx.ErrNoRows) {
		// Zero rows: either the batch does not belong to the medicine, or
		// there is not enough stock. A follow-up read tells them apart.
		var available int
		probeErr := tx.QueryRow(ctx,
			`SELECT quantity_on_hand FROM batches WHERE id = $1 AND medicine_id = $2`,
			batchID, medicineID,
		).Scan(&available)
		if errors.Is(probeErr, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "batch", ID: batchID}
		}
		if probeErr != nil {
			return nil, &models.PersistenceError{Op: "probe batch", Err: probeErr}
		}
		return nil, &models.InsufficientStockError{
			MedicineID: medicineID,
			BatchID:    batchID,
			Requested:  quantity,
			Available:  available,
		}
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "deduct batch", Err: err}
	}

	err = tx.QueryRow(ctx,
		`UPDATE medicines SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING stock_quantity`,
		quantity, medicineID,
	).Scan(&snap.MedicineStock)
	if err != nil {
		return nil, &models.PersistenceError{Op: "deduct medicine counter", Err: err}
	}

	if err := r.recordAdjustment(ctx, tx, batchID, medicineID, -quantity, models.AdjustmentDeduction, actorID, ""); err != nil {
		return nil, err
	}

	return &snap, nil
}

// Receive creates a batch from a supplier delivery and bumps the medicine's
// aggregate counter.
func (r *BatchRepository) Receive(ctx context.Context, medicineID int, req *models.ReceiveBatchRequest, actorID int) (*models.BatchSnapshot, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "begin receive", Err: err}
	}
	defer tx.Rollback(ctx)

	var snap models.BatchSnapshot
	err = tx.QueryRow(ctx,
		`INSERT INTO batches(medicine_id, batch_number, expiry_date, quantity_on_hand,
		                     purchase_price, selling_price, supplier_id, received_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING id, medicine_id, batch_number, quantity_on_hand`,
		medicineID, req.BatchNumber, req.ExpiryDate, req.Quantity,
		req.PurchasePrice, req.SellingPrice, req.SupplierID,
	).Scan(&snap.BatchID, &snap.MedicineID, &snap.BatchNumber, &snap.QuantityOnHand)
	if err != nil {
		return nil, &models.PersistenceError{Op: "insert batch", Err: err}
	}

	err = tx.QueryRow(ctx,
		`UPDATE medicines SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING stock_quantity`,
		req.Quantity, medicineID,
	).Scan(&snap.MedicineStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "medicine", ID: medicineID}
		}
		return nil, &models.PersistenceError{Op: "receive medicine counter", Err: err}
	}

	if err := r.recordAdjustment(ctx, tx, snap.BatchID, medicineID, req.Quantity, models.AdjustmentAddition, actorID, "received "+req.BatchNumber); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &models.PersistenceError{Op: "commit receive", Err: err}
	}
	return &snap, nil
}

// Adjust applies a signed manual correction. A reduction past zero clamps to
// zero and applies only the possible part; the audit row records the applied
// delta, not the requested one.
func (r *BatchRepository) Adjust(ctx context.Context, batchID, delta int, reason models.AdjustmentReason, actorID int, notes string) (*models.BatchSnapshot, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, &models.PersistenceError{Op: "begin adjust", Err: err}
	}
	defer tx.Rollback(ctx)

	var snap models.BatchSnapshot
	var before int
	err = tx.QueryRow(ctx,
		`SELECT id, medicine_id, batch_number, quantity_on_hand
		 FROM batches WHERE id = $1 FOR UPDATE`, batchID,
	).Scan(&snap.BatchID, &snap.MedicineID, &snap.BatchNumber, &before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "batch", ID: batchID}
		}
		return nil, &models.PersistenceError{Op: "lock batch", Err: err}
	}

	after := before + delta
	if after < 0 {
		after = 0
	}
	applied := after - before

	_, err = tx.Exec(ctx,
		`UPDATE batches SET quantity_on_hand = $1 WHERE id = $2`, after, batchID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "adjust batch", Err: err}
	}
	snap.QuantityOnHand = after

	err = tx.QueryRow(ctx,
		`UPDATE medicines SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING stock_quantity`,
		applied, snap.MedicineID,
	).Scan(&snap.MedicineStock)
	if err != nil {
		return nil, &models.PersistenceError{Op: "adjust medicine counter", Err: err}
	}

	if applied != 0 {
		if err := r.recordAdjustment(ctx, tx, batchID, snap.MedicineID, applied, reason, actorID, notes); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &models.PersistenceError{Op: "commit adjust", Err: err}
	}
	return &snap, nil
}

// ListAdjustments returns the audit trail for a batch, newest first
func (r *BatchRepository) ListAdjustments(ctx context.Context, batchID int) ([]models.StockAdjustment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, batch_id, medicine_id, delta, reason, performed_by, COALESCE(notes, ''), created_at
		 FROM stock_adjustments
		 WHERE batch_id = $1
		 ORDER BY created_at DESC, id DESC`, batchID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "list adjustments", Err: err}
	}
	defer rows.Close()

	var entries []models.StockAdjustment
	for rows.Next() {
		var a models.StockAdjustment
		err := rows.Scan(&a.ID, &a.BatchID, &a.MedicineID, &a.Delta, &a.Reason,
			&a.PerformedBy, &a.Notes, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, nil
}

func (r *BatchRepository) recordAdjustment(ctx context.Context, tx pgx.Tx, batchID, medicineID, delta int, reason models.AdjustmentReason, actorID int, notes string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO stock_adjustments(batch_id, medicine_id, delta, reason, performed_by, notes)
		 VALUES($1, $2, $3, $4, $5, $6)`,
		batchID, medicineID, delta, reason, actorID, notes)
	if err != nil {
		return fmt.Errorf("failed to record stock adjustment: %w", err)
	}
	return nil
}
