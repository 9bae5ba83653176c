package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/c14220110/hospital-backend/internal/tokens/models"
	"github.com/c14220110/hospital-backend/pkg/apperror"
	"github.com/c14220110/hospital-backend/pkg/cache"
	"github.com/c14220110/hospital-backend/pkg/events"
	"github.com/c14220110/hospital-backend/pkg/storage/mariadb"
)

const dateLayout = "2006-01-02"

// Broadcaster mengirim snapshot resource ke client yang terhubung (ws.Hub).
type Broadcaster interface {
	Publish(resource string, data interface{})
}

// TokenService mengelola antrian token walk-in per (tanggal sesi, dokter).
// Paling banyak satu token berstatus Calling dalam satu daftar.
type TokenService struct {
	DB          *sql.DB
	Cache       cache.Cache
	CacheTTL    time.Duration
	Events      events.Publisher
	Hub         Broadcaster
	Log         logrus.FieldLogger
	Loc         *time.Location
	CallTimeout time.Duration
	Timer       *CallTimer

	now func() time.Time
}

func NewTokenService(db *sql.DB, c cache.Cache, ttl time.Duration, pub events.Publisher, hub Broadcaster,
	log logrus.FieldLogger, loc *time.Location, callTimeout time.Duration) *TokenService {
	if loc == nil {
		loc = time.UTC
	}
	s := &TokenService{
		DB:          db,
		Cache:       c,
		CacheTTL:    ttl,
		Events:      pub,
		Hub:         hub,
		Log:         log,
		Loc:         loc,
		CallTimeout: callTimeout,
		now:         time.Now,
	}
	s.Timer = NewCallTimer(callTimeout, s.autoComplete)
	return s
}

const tokenColumns = `
	SELECT t.id, t.token_no, t.session_date, t.patient_id, p.name, t.doctor_id, u.name, t.department_id,
	       t.status, t.version, t.created_at, t.called_at, t.completed_at
	FROM tokens t
	JOIN patients p ON p.id = t.patient_id
	JOIN doctors d ON d.id = t.doctor_id
	JOIN users u ON u.id = d.user_id`

func listKey(doctorID int64, date string) string {
	return fmt.Sprintf("tokens:%d:%s", doctorID, date)
}

func (s *TokenService) today() string {
	return s.now().In(s.Loc).Format(dateLayout)
}

// sessionDate memvalidasi tanggal YYYY-MM-DD; kosong berarti hari ini.
func (s *TokenService) sessionDate(raw string) (string, error) {
	if raw == "" {
		return s.today(), nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", apperror.Validation("date must be in YYYY-MM-DD format")
	}
	return raw, nil
}

// Generate memberi nomor token berikutnya pada antrian dokter hari ini.
func (s *TokenService) Generate(ctx context.Context, req models.GenerateRequest) (*models.Token, error) {
	if req.PatientID <= 0 || req.DoctorID <= 0 {
		return nil, apperror.Validation("patient_id and doctor_id are required")
	}
	date := s.today()

	var tokenID int64
	var tokenNo int
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var dept sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT department_id FROM doctors WHERE id = ?`, req.DoctorID).Scan(&dept)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("doctor")
		}
		if err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(token_no), 0) FROM tokens WHERE session_date = ? AND doctor_id = ? FOR UPDATE`,
			date, req.DoctorID).Scan(&tokenNo); err != nil {
			return err
		}
		tokenNo++

		res, err := tx.ExecContext(ctx,
			`INSERT INTO tokens (session_date, token_no, patient_id, doctor_id, department_id, status) VALUES (?, ?, ?, ?, ?, ?)`,
			date, tokenNo, req.PatientID, req.DoctorID, dept, string(models.StatusWaiting))
		if err != nil {
			return err
		}
		tokenID, err = res.LastInsertId()
		return err
	})
	if err = s.mapTxError(err, "generate token"); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"token_id": tokenID, "token_no": tokenNo, "doctor_id": req.DoctorID}).Info("token generated")
	s.afterChange(ctx, req.DoctorID, date)
	return s.Get(ctx, tokenID)
}

// List mengembalikan antrian (dokter, tanggal) berurutan token_no, dari cache bila tersedia.
func (s *TokenService) List(ctx context.Context, doctorID int64, rawDate string) ([]models.Token, error) {
	if doctorID <= 0 {
		return nil, apperror.Validation("doctor_id is required")
	}
	date, err := s.sessionDate(rawDate)
	if err != nil {
		return nil, err
	}

	key := listKey(doctorID, date)
	raw, hit, err := s.Cache.Get(ctx, key)
	if err != nil {
		s.Log.WithError(err).Warn("token cache read failed")
	}
	if hit {
		if items, ok := cache.DecodeList[models.Token](raw, s.Log); ok {
			return items, nil
		}
		if err := s.Cache.Delete(ctx, key); err != nil {
			s.Log.WithError(err).Warn("token cache invalidation failed")
		}
	}

	items, err := s.queryTokens(ctx, tokenColumns+` WHERE t.doctor_id = ? AND t.session_date = ? ORDER BY t.token_no`, doctorID, date)
	if err != nil {
		return nil, err
	}
	if encoded, err := cache.EncodeList(items); err == nil {
		if err := s.Cache.Set(ctx, key, encoded, s.CacheTTL); err != nil {
			s.Log.WithError(err).Warn("token cache write failed")
		}
	}
	return items, nil
}

func (s *TokenService) Get(ctx context.Context, id int64) (*models.Token, error) {
	items, err := s.queryTokens(ctx, tokenColumns+` WHERE t.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.NotFound("token")
	}
	return &items[0], nil
}

func (s *TokenService) queryTokens(ctx context.Context, query string, args ...interface{}) ([]models.Token, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query tokens: %w", err))
	}
	defer rows.Close()

	result := []models.Token{}
	for rows.Next() {
		var t models.Token
		var session time.Time
		var dept sql.NullInt64
		var status string
		var calledAt, completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.TokenNo, &session, &t.PatientID, &t.PatientName, &t.DoctorID, &t.DoctorName,
			&dept, &status, &t.Version, &t.CreatedAt, &calledAt, &completedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		t.SessionDate = session.Format(dateLayout)
		t.Status = models.Status(status)
		if dept.Valid {
			t.DepartmentID = &dept.Int64
		}
		if calledAt.Valid {
			t.CalledAt = &calledAt.Time
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return result, nil
}

// lockedToken adalah baris token yang sudah dikunci FOR UPDATE di dalam transaksi.
type lockedToken struct {
	id       int64
	doctorID int64
	date     string
	status   models.Status
	version  int
}

func lockToken(ctx context.Context, tx *sql.Tx, id int64) (*lockedToken, error) {
	lt := &lockedToken{id: id}
	var session time.Time
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT doctor_id, session_date, status, version FROM tokens WHERE id = ? FOR UPDATE`, id).
		Scan(&lt.doctorID, &session, &status, &lt.version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("token")
	}
	if err != nil {
		return nil, err
	}
	lt.date = session.Format(dateLayout)
	lt.status = models.Status(status)
	return lt, nil
}

func checkVersion(expected *int, actual int) error {
	if expected != nil && *expected != actual {
		return apperror.VersionConflict("token")
	}
	return nil
}

// ensureNoneCalling menolak bila daftar yang sama sudah punya token Calling selain exceptID.
func ensureNoneCalling(ctx context.Context, tx *sql.Tx, doctorID int64, date string, exceptID int64) error {
	var callingID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM tokens WHERE session_date = ? AND doctor_id = ? AND status = ? AND id <> ? LIMIT 1 FOR UPDATE`,
		date, doctorID, string(models.StatusCalling), exceptID).Scan(&callingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperror.Precondition(fmt.Sprintf("token %d is already being called", callingID))
}

// moveTo menjalankan UPDATE dengan optimistic version. Transisi sudah divalidasi pemanggil.
func (s *TokenService) moveTo(ctx context.Context, tx *sql.Tx, lt *lockedToken, to models.Status) error {
	if !models.CanTransition(lt.status, to) {
		return apperror.Conflict(fmt.Sprintf("token cannot move from %s to %s", lt.status, to))
	}
	column := "called_at"
	if to == models.StatusDone {
		column = "completed_at"
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE tokens SET status = ?, `+column+` = ?, version = version + 1 WHERE id = ? AND version = ?`,
		string(to), s.now().UTC(), lt.id, lt.version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.VersionConflict("token")
	}
	lt.status = to
	lt.version++
	return nil
}

// CallNext memanggil token Waiting dengan nomor terkecil. Gagal PreconditionFailed bila
// masih ada token Calling di daftar yang sama. expectedVersion (opsional) dicocokkan dengan
// versi token kepala antrian yang dilihat client.
func (s *TokenService) CallNext(ctx context.Context, req models.CallNextRequest, expectedVersion *int) (*models.Token, error) {
	if req.DoctorID <= 0 {
		return nil, apperror.Validation("doctor_id is required")
	}
	date, err := s.sessionDate(req.Date)
	if err != nil {
		return nil, err
	}

	var called *lockedToken
	err = mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := ensureNoneCalling(ctx, tx, req.DoctorID, date, 0); err != nil {
			return err
		}
		var nextID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM tokens WHERE session_date = ? AND doctor_id = ? AND status = ? ORDER BY token_no LIMIT 1 FOR UPDATE`,
			date, req.DoctorID, string(models.StatusWaiting)).Scan(&nextID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("waiting token")
		}
		if err != nil {
			return err
		}
		lt, err := lockToken(ctx, tx, nextID)
		if err != nil {
			return err
		}
		if err := checkVersion(expectedVersion, lt.version); err != nil {
			return err
		}
		if err := s.moveTo(ctx, tx, lt, models.StatusCalling); err != nil {
			return err
		}
		called = lt
		return nil
	})
	if err = s.mapTxError(err, "call next token"); err != nil {
		return nil, err
	}
	return s.afterCalled(ctx, called)
}

// Call memanggil token tertentu (misalnya pasien yang dilewati sebelumnya).
func (s *TokenService) Call(ctx context.Context, id int64, expectedVersion *int) (*models.Token, error) {
	var called *lockedToken
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		lt, err := lockToken(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(expectedVersion, lt.version); err != nil {
			return err
		}
		if lt.status != models.StatusWaiting {
			return apperror.Conflict(fmt.Sprintf("token cannot move from %s to %s", lt.status, models.StatusCalling))
		}
		if err := ensureNoneCalling(ctx, tx, lt.doctorID, lt.date, lt.id); err != nil {
			return err
		}
		if err := s.moveTo(ctx, tx, lt, models.StatusCalling); err != nil {
			return err
		}
		called = lt
		return nil
	})
	if err = s.mapTxError(err, "call token"); err != nil {
		return nil, err
	}
	return s.afterCalled(ctx, called)
}

func (s *TokenService) afterCalled(ctx context.Context, lt *lockedToken) (*models.Token, error) {
	s.Timer.Schedule(lt.id)
	s.Log.WithFields(logrus.Fields{"token_id": lt.id, "doctor_id": lt.doctorID}).Info("token called")
	events.Emit(s.Events, s.Log, events.New(events.TokenCalled, lt.id, map[string]interface{}{
		"doctor_id":    lt.doctorID,
		"session_date": lt.date,
	}))
	s.afterChange(ctx, lt.doctorID, lt.date)
	return s.Get(ctx, lt.id)
}

// Complete menyelesaikan token Calling dan membatalkan timer auto-complete-nya.
func (s *TokenService) Complete(ctx context.Context, id int64, expectedVersion *int) (*models.Token, error) {
	var done *lockedToken
	err := mariadb.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		lt, err := lockToken(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(expectedVersion, lt.version); err != nil {
			return err
		}
		if err := s.moveTo(ctx, tx, lt, models.StatusDone); err != nil {
			return err
		}
		done = lt
		return nil
	})
	if err = s.mapTxError(err, "complete token"); err != nil {
		return nil, err
	}

	s.Timer.Cancel(id)
	s.Log.WithField("token_id", id).Info("token done")
	events.Emit(s.Events, s.Log, events.New(events.TokenDone, id, map[string]interface{}{
		"doctor_id":    done.doctorID,
		"session_date": done.date,
	}))
	s.afterChange(ctx, done.doctorID, done.date)
	return s.Get(ctx, id)
}

// autoComplete dipanggil CallTimer saat batas waktu Calling habis.
func (s *TokenService) autoComplete(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.Complete(ctx, id, nil); err != nil && apperror.KindOf(err) != apperror.KindConflict {
		s.Log.WithError(err).WithField("token_id", id).Warn("auto-complete failed")
	}
}

// SweepExpired menyelesaikan token Calling yang melewati batas waktu, termasuk yang
// timernya hilang karena restart. Mengembalikan jumlah token yang diselesaikan.
func (s *TokenService) SweepExpired(ctx context.Context) (int, error) {
	if s.CallTimeout <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.CallTimeout)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id FROM tokens WHERE status = ? AND called_at <= ? ORDER BY called_at`,
		string(models.StatusCalling), cutoff)
	if err != nil {
		return 0, apperror.Internal(fmt.Errorf("sweep tokens: %w", err))
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperror.Internal(err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, apperror.Internal(err)
	}

	completed := 0
	for _, id := range ids {
		if _, err := s.Complete(ctx, id, nil); err != nil {
			if apperror.KindOf(err) == apperror.KindConflict {
				continue
			}
			return completed, err
		}
		completed++
	}
	return completed, nil
}

// afterChange membuang snapshot cache lalu mem-broadcast daftar lengkap terbaru.
func (s *TokenService) afterChange(ctx context.Context, doctorID int64, date string) {
	if err := s.Cache.Delete(ctx, listKey(doctorID, date)); err != nil {
		s.Log.WithError(err).Warn("token cache invalidation failed")
	}
	items, err := s.List(ctx, doctorID, date)
	if err != nil {
		s.Log.WithError(err).WithField("doctor_id", doctorID).Warn("failed to load token snapshot for broadcast")
		return
	}
	s.Hub.Publish("token", models.Snapshot{DoctorID: doctorID, SessionDate: date, Tokens: items})
}

func (s *TokenService) mapTxError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case mariadb.IsDuplicate(err):
		// uq_tokens_calling atau uq_tokens_list_no ditabrak oleh request lain yang bersamaan
		return apperror.Precondition("token queue changed concurrently, reload and retry")
	case mariadb.IsForeignKeyViolation(err):
		return apperror.Validation("patient or doctor does not exist")
	case apperror.KindOf(err) != apperror.KindInternal:
		return err
	default:
		return apperror.Internal(fmt.Errorf("%s: %w", op, err))
	}
}
