package source

import (
	"errors"

	"chatlas/internal/ports"
)

// MemorySource реализует интерфейс DataSource для данных, уже загруженных в
// память: документа из Telegram или файла из multipart-запроса.
type MemorySource struct {
	data []byte
	name string
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(data []byte, name string) ports.DataSource {
	return &MemorySource{data: data, name: name}
}

// Fetch возвращает копию данных.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, errors.New("data not set")
	}

	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}

// Name возвращает исходное имя файла.
func (s *MemorySource) Name() string {
	return s.name
}
