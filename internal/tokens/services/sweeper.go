package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSweeper menjalankan SweepExpired sesuai jadwal cron (default "@every 1m").
// Mengembalikan nil bila CallTimeout nonaktif. Pemanggil wajib memanggil Stop saat shutdown.
func (s *TokenService) StartSweeper(spec string) (*cron.Cron, error) {
	if s.CallTimeout <= 0 {
		return nil, nil
	}
	scheduler := cron.New(cron.WithLocation(s.Loc))
	_, err := scheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := s.SweepExpired(ctx)
		if err != nil {
			s.Log.WithError(err).Error("token sweep failed")
			return
		}
		if n > 0 {
			s.Log.WithField("completed", n).Info("expired calling tokens completed")
		}
	})
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}
