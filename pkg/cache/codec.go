package cache

import (
	"bytes"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// EncodeList menyimpan daftar sebagai array JSON dengan urutan yang sama. Nil menjadi "[]".
func EncodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// DecodeList membaca array JSON hasil EncodeList. Input kosong atau rusak menghasilkan
// daftar kosong; ok=false menandakan data rusak (sudah dicatat ke log).
func DecodeList[T any](raw []byte, log logrus.FieldLogger) (items []T, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, true
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		log.WithError(err).WithField("bytes", len(raw)).Warn("discarding corrupt list snapshot")
		return []T{}, false
	}
	if items == nil {
		items = []T{}
	}
	return items, true
}
