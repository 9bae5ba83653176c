package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/doctors/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
)

const MaxImageSize = 5 << 20

// Hanya format raster; SVG bisa membawa script dan disajikan dari origin yang sama.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// StoreImage menyimpan foto dokter ke UploadDir dengan nama acak.
// Tipe file ditentukan dari isi, bukan dari nama file yang dikirim client.
func (s *DoctorService) StoreImage(ctx context.Context, id int64, src io.Reader) (*models.Doctor, error) {
	data, err := io.ReadAll(io.LimitReader(src, MaxImageSize+1))
	if err != nil {
		return nil, apperror.Validation("failed to read image")
	}
	if len(data) == 0 {
		return nil, apperror.Validation("image is empty")
	}
	if len(data) > MaxImageSize {
		return nil, apperror.Validation("image must not exceed 5MB")
	}
	mt := mimetype.Detect(data)
	if !allowedImageTypes[mt.String()] {
		return nil, apperror.Validation("image must be JPEG, PNG, GIF or WebP, got " + mt.String())
	}

	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create upload dir: %w", err))
	}
	name := uuid.NewString() + mt.Extension()
	dst := filepath.Join(s.UploadDir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return nil, apperror.Internal(fmt.Errorf("write image: %w", err))
	}

	publicPath := "/uploads/" + name
	res, err := s.DB.ExecContext(ctx, `UPDATE doctors SET image_path = ? WHERE id = ?`, publicPath, id)
	if err != nil {
		os.Remove(dst)
		return nil, apperror.Internal(fmt.Errorf("update image path: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		os.Remove(dst)
		return nil, apperror.NotFound("doctor")
	}

	doc, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{"doctor_id": id, "mime": mt.String()}).Info("doctor image stored")
	s.Hub.Publish("doctor", doc)
	return doc, nil
}
