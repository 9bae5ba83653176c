package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/billing/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/cache"
	"github.com/c14220110/hospital-backend/pkg/events"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
	"github.com/c14220110/hospital-backend/pkg/utils"
)

// Broadcaster mengirim snapshot resource ke client yang terhubung (ws.Hub).
type Broadcaster interface {
	Publish(resource string, data interface{})
}

// BillingService menangani logika bisnis untuk invoice dan pembayaran.
type BillingService struct {
	DB       *sql.DB
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   events.Publisher
	Hub      Broadcaster
	Log      logrus.FieldLogger
}

func NewBillingService(db *sql.DB, c cache.Cache, ttl time.Duration, pub events.Publisher, hub Broadcaster, log logrus.FieldLogger) *BillingService {
	return &BillingService{DB: db, Cache: c, CacheTTL: ttl, Events: pub, Hub: hub, Log: log}
}

const invoiceColumns = `
	SELECT i.id, i.appointment_id, i.patient_id, p.name, i.amount, i.discount, i.tax, i.total,
	       i.payment_status, i.issued_date
	FROM invoices i
	JOIN patients p ON p.id = i.patient_id`

func invoiceKey(id int64) string { return "invoice:" + strconv.FormatInt(id, 10) }

// CreateInvoice membuat invoice untuk satu appointment beserta item-nya dalam satu transaksi.
// Invoice kedua untuk appointment yang sama ditolak oleh unique constraint (Conflict).
func (s *BillingService) CreateInvoice(ctx context.Context, req models.CreateInvoiceRequest) (int64, error) {
	if req.AppointmentID <= 0 || req.PatientID <= 0 {
		return 0, apperror.Validation("appointment_id and patient_id are required")
	}

	var invoiceID int64
	var breakdown models.Breakdown
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		fee, err := s.consultationFee(ctx, tx, req)
		if err != nil {
			return err
		}
		items, err := s.resolveItems(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		breakdown, err = Compute(models.InvoiceInput{
			Items:           items,
			ConsultationFee: fee,
			LabCharges:      req.LabCharges,
			MedicineCharges: req.MedicineCharges,
			DiscountPercent: req.DiscountPercent,
		})
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO invoices (appointment_id, patient_id, amount, discount, tax, total, payment_status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			req.AppointmentID, req.PatientID,
			RoundCurrency(breakdown.Subtotal), RoundCurrency(breakdown.DiscountAmount),
			breakdown.Tax, breakdown.Total, models.PaymentPending)
		if err != nil {
			return err
		}
		if invoiceID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, it := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO invoice_items (invoice_id, description, unit_charge, quantity) VALUES (?, ?, ?, ?)`,
				invoiceID, it.Description, it.UnitCharge, quantityOf(it)); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case err == nil:
	case mariadb.IsDuplicate(err):
		return 0, apperror.Conflict("invoice already exists for this appointment")
	case mariadb.IsForeignKeyViolation(err):
		return 0, apperror.Validation("appointment or patient does not exist")
	case apperror.KindOf(err) != apperror.KindInternal:
		return 0, err
	default:
		return 0, apperror.Internal(fmt.Errorf("create invoice: %w", err))
	}

	s.Log.WithFields(logrus.Fields{"invoice_id": invoiceID, "appointment_id": req.AppointmentID}).Info("invoice created")
	events.Emit(s.Events, s.Log, events.New(events.InvoiceCreated, invoiceID, map[string]interface{}{
		"appointment_id": req.AppointmentID,
		"patient_id":     req.PatientID,
		"total":          breakdown.Total,
	}))
	s.Hub.Publish("billing", map[string]interface{}{
		"invoice_id":     invoiceID,
		"payment_status": models.PaymentPending,
	})
	return invoiceID, nil
}

// consultationFee memakai fee dari request, atau tarif dokter pada appointment bila kosong.
func (s *BillingService) consultationFee(ctx context.Context, tx *sql.Tx, req models.CreateInvoiceRequest) (float64, error) {
	if req.ConsultationFee != nil {
		return *req.ConsultationFee, nil
	}
	var fee float64
	err := tx.QueryRowContext(ctx,
		`SELECT d.consultation_fee FROM appointments a JOIN doctors d ON d.id = a.doctor_id WHERE a.id = ?`,
		req.AppointmentID).Scan(&fee)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperror.Validation("appointment does not exist")
	}
	return fee, err
}

// resolveItems mengisi harga item yang memakai service_code dari tabel service_prices.
func (s *BillingService) resolveItems(ctx context.Context, tx *sql.Tx, items []models.InvoiceItem) ([]models.InvoiceItem, error) {
	out := make([]models.InvoiceItem, 0, len(items))
	for _, it := range items {
		it.ServiceCode = strings.TrimSpace(it.ServiceCode)
		if it.ServiceCode != "" {
			var name string
			var price float64
			err := tx.QueryRowContext(ctx, `SELECT name, price FROM service_prices WHERE code = ?`, it.ServiceCode).Scan(&name, &price)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperror.Validation("unknown service code: " + it.ServiceCode)
			}
			if err != nil {
				return nil, err
			}
			it.UnitCharge = price
			if strings.TrimSpace(it.Description) == "" {
				it.Description = name
			}
		}
		if strings.TrimSpace(it.Description) == "" {
			return nil, apperror.Validation("item description is required")
		}
		it.Quantity = quantityOf(it)
		out = append(out, it)
	}
	return out, nil
}

// GetInvoiceByID mengambil invoice beserta item-nya; rawID harus bilangan bulat positif.
func (s *BillingService) GetInvoiceByID(ctx context.Context, rawID string) (*models.Invoice, error) {
	id, err := utils.ParseID(rawID, "invoice id")
	if err != nil {
		return nil, err
	}

	var cached models.Invoice
	if hit, err := cache.GetJSON(ctx, s.Cache, invoiceKey(id), &cached); err != nil {
		s.Log.WithError(err).Warn("invoice cache read failed")
	} else if hit {
		return &cached, nil
	}

	inv, err := scanInvoice(s.DB.QueryRowContext(ctx, invoiceColumns+` WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("invoice")
	}
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get invoice: %w", err))
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT description, unit_charge, quantity FROM invoice_items WHERE invoice_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("get invoice items: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.Description, &it.UnitCharge, &it.Quantity); err != nil {
			return nil, apperror.Internal(err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}

	if err := cache.SetJSON(ctx, s.Cache, invoiceKey(id), inv, s.CacheTTL); err != nil {
		s.Log.WithError(err).Warn("invoice cache write failed")
	}
	return inv, nil
}

// SearchInvoices mencari invoice berdasarkan substring nama pasien atau id invoice.
func (s *BillingService) SearchInvoices(ctx context.Context, term string) ([]models.Invoice, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperror.Validation("search term is required")
	}
	like := "%" + utils.EscapeLike(term) + "%"
	return s.queryInvoices(ctx,
		invoiceColumns+` WHERE p.name LIKE ? OR CAST(i.id AS CHAR) LIKE ? ORDER BY i.issued_date DESC, i.id DESC`,
		like, like)
}

// ListInvoices mengembalikan invoice terbaru; status kosong berarti semua.
func (s *BillingService) ListInvoices(ctx context.Context, status string) ([]models.Invoice, error) {
	switch status {
	case "":
		return s.queryInvoices(ctx, invoiceColumns+` ORDER BY i.issued_date DESC, i.id DESC`)
	case models.PaymentPending, models.PaymentPaid:
		return s.queryInvoices(ctx, invoiceColumns+` WHERE i.payment_status = ? ORDER BY i.issued_date DESC, i.id DESC`, status)
	default:
		return nil, apperror.Validation("status must be Pending or Paid")
	}
}

func (s *BillingService) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]models.Invoice, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query invoices: %w", err))
	}
	defer rows.Close()

	result := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		result = append(result, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(r rowScanner) (*models.Invoice, error) {
	inv := &models.Invoice{Items: []models.InvoiceItem{}}
	err := r.Scan(&inv.ID, &inv.AppointmentID, &inv.PatientID, &inv.PatientName,
		&inv.Amount, &inv.Discount, &inv.Tax, &inv.Total, &inv.PaymentStatus, &inv.IssuedDate)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// RecordPayment mencatat pembayaran. Invoice menjadi Paid setelah total pembayaran sukses >= total invoice.
func (s *BillingService) RecordPayment(ctx context.Context, invoiceID int64, req models.RecordPaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Method == "" {
		return nil, apperror.Validation("method is required")
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		req.TransactionID = uuid.NewString()
	}

	payment := &models.Payment{
		InvoiceID:     invoiceID,
		Amount:        RoundCurrency(req.Amount),
		Method:        req.Method,
		TransactionID: req.TransactionID,
		Status:        "Success",
	}
	paid := false
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var total float64
		var status string
		err := tx.QueryRowContext(ctx, `SELECT total, payment_status FROM invoices WHERE id = ? FOR UPDATE`, invoiceID).Scan(&total, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("invoice")
		}
		if err != nil {
			return err
		}
		if status == models.PaymentPaid {
			return apperror.Conflict("invoice is already paid")
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO payments (invoice_id, amount, method, transaction_id, status) VALUES (?, ?, ?, ?, ?)`,
			invoiceID, payment.Amount, payment.Method, payment.TransactionID, payment.Status)
		if err != nil {
			return err
		}
		if payment.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		var sum float64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = ? AND status = 'Success'`,
			invoiceID).Scan(&sum); err != nil {
			return err
		}
		if RoundCurrency(sum) >= total {
			if _, err := tx.ExecContext(ctx, `UPDATE invoices SET payment_status = ? WHERE id = ?`, models.PaymentPaid, invoiceID); err != nil {
				return err
			}
			paid = true
		}
		return nil
	})
	switch {
	case err == nil:
	case mariadb.IsDuplicate(err):
		return nil, apperror.Conflict("transaction_id already recorded")
	case apperror.KindOf(err) != apperror.KindInternal:
		return nil, err
	default:
		return nil, apperror.Internal(fmt.Errorf("record payment: %w", err))
	}
	payment.PaidAt = time.Now().UTC()

	if err := s.Cache.Delete(ctx, invoiceKey(invoiceID)); err != nil {
		s.Log.WithError(err).Warn("invoice cache invalidation failed")
	}
	status := models.PaymentPending
	if paid {
		status = models.PaymentPaid
		events.Emit(s.Events, s.Log, events.New(events.InvoicePaid, invoiceID, map[string]interface{}{
			"transaction_id": payment.TransactionID,
		}))
	}
	s.Hub.Publish("billing", map[string]interface{}{
		"invoice_id":     invoiceID,
		"payment_status": status,
	})
	return payment, nil
}

func (s *BillingService) ListPayments(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx, `SELECT 1 FROM invoices WHERE id = ?`, invoiceID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("invoice")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, invoice_id, amount, method, transaction_id, status, paid_at FROM payments WHERE invoice_id = ? ORDER BY paid_at, id`,
		invoiceID)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list payments: %w", err))
	}
	defer rows.Close()

	result := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.PaidAt); err != nil {
			return nil, apperror.Internal(err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

func (s *BillingService) ListServicePrices(ctx context.Context) ([]models.ServicePrice, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT code, name, price FROM service_prices ORDER BY code`)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list service prices: %w", err))
	}
	defer rows.Close()

	result := []models.ServicePrice{}
	for rows.Next() {
		var sp models.ServicePrice
		if err := rows.Scan(&sp.Code, &sp.Name, &sp.Price); err != nil {
			return nil, apperror.Internal(err)
		}
		result = append(result, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// UpsertServicePrice membuat atau memperbarui tarif layanan berdasarkan code.
func (s *BillingService) UpsertServicePrice(ctx context.Context, sp models.ServicePrice) error {
	sp.Code = strings.TrimSpace(sp.Code)
	sp.Name = strings.TrimSpace(sp.Name)
	if sp.Code == "" || sp.Name == "" {
		return apperror.Validation("code and name are required")
	}
	if sp.Price < 0 {
		return apperror.Validation("price must not be negative")
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO service_prices (code, name, price) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name), price = VALUES(price)`,
		sp.Code, sp.Name, RoundCurrency(sp.Price))
	if err != nil {
		return apperror.Internal(fmt.Errorf("upsert service price: %w", err))
	}
	s.Hub.Publish("service_price", sp)
	return nil
}
