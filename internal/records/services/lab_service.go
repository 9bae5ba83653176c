package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/records/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
)

func (s *RecordsService) OrderLab(ctx context.Context, req models.LabOrderRequest) (*models.LabReport, error) {
	req.TestName = strings.TrimSpace(req.TestName)
	if req.PatientID <= 0 {
		return nil, apperror.Validation("patient_id must be a positive integer")
	}
	if req.TestName == "" {
		return nil, apperror.Validation("test_name is required")
	}
	var appt sql.NullInt64
	if req.AppointmentID != nil && *req.AppointmentID > 0 {
		appt = sql.NullInt64{Int64: *req.AppointmentID, Valid: true}
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO lab_reports (patient_id, appointment_id, test_name, status) VALUES (?, ?, ?, ?)`,
		req.PatientID, appt, req.TestName, models.LabPending)
	if err != nil {
		return nil, mapTxError("order lab", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return s.afterLabChange(ctx, id)
}

// RecordLabResult mengisi hasil dan menutup report; report Completed tidak bisa diubah lagi.
func (s *RecordsService) RecordLabResult(ctx context.Context, id int64, result string) (*models.LabReport, error) {
	result = strings.TrimSpace(result)
	if result == "" {
		return nil, apperror.Validation("result is required")
	}

	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM lab_reports WHERE id = ? FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("lab report")
		}
		if err != nil {
			return err
		}
		if status == models.LabCompleted {
			return apperror.Conflict("lab report is already completed")
		}
		_, err = tx.ExecContext(ctx, `UPDATE lab_reports SET result = ?, status = ? WHERE id = ?`, result, models.LabCompleted, id)
		return err
	})
	if err != nil {
		return nil, mapTxError("record lab result", err)
	}
	return s.afterLabChange(ctx, id)
}

func (s *RecordsService) afterLabChange(ctx context.Context, id int64) (*models.LabReport, error) {
	list, err := s.queryLab(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperror.NotFound("lab report")
	}
	r := list[0]
	s.Log.WithFields(logrus.Fields{"lab_report_id": id, "status": r.Status}).Info("lab report changed")
	s.Hub.Publish("lab_report", r)
	return &r, nil
}

func (s *RecordsService) ListLabReports(ctx context.Context, patientID int64) ([]models.LabReport, error) {
	return s.queryLab(ctx, `WHERE patient_id = ? ORDER BY created_at DESC, id DESC`, patientID)
}

func (s *RecordsService) queryLab(ctx context.Context, where string, args ...interface{}) ([]models.LabReport, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, patient_id, appointment_id, test_name, result, status, created_at FROM lab_reports `+where, args...)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query lab reports: %w", err))
	}
	defer rows.Close()

	result := []models.LabReport{}
	for rows.Next() {
		var r models.LabReport
		var appt sql.NullInt64
		var res sql.NullString
		if err := rows.Scan(&r.ID, &r.PatientID, &appt, &r.TestName, &res, &r.Status, &r.CreatedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		if appt.Valid {
			r.AppointmentID = &appt.Int64
		}
		if res.Valid {
			r.Result = &res.String
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}
