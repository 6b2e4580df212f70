package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"telegram-entity-parser/internal/ports"
)

var (
	// ErrNoData возвращается, если источнику нечего отдать.
	ErrNoData = errors.New("data not set")
	// ErrNoPath возвращается, когда путь к файлу с обновлениями не указан.
	ErrNoPath = errors.New("file path is not set")
	// ErrTooLarge возвращается FromReader, если поток длиннее лимита.
	ErrTooLarge = errors.New("data exceeds size limit")
)

// Memory хранит содержимое уже прочитанного файла: загрузки на сервер или документа из бота.
type Memory struct {
	data []byte
}

// NewMemorySource оборачивает готовые байты.
func NewMemorySource(data []byte) ports.DataSource {
	return &Memory{data: data}
}

// FromReader вычитывает r целиком, но не больше limit байт. limit <= 0 снимает ограничение.
func FromReader(r io.Reader, limit int64) (ports.DataSource, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return &Memory{data: buf.Bytes()}, nil
}

// Fetch отдает копию, чтобы вызывающий мог менять срез.
func (m *Memory) Fetch() ([]byte, error) {
	if len(m.data) == 0 {
		return nil, ErrNoData
	}
	return bytes.Clone(m.data), nil
}

// File читает обновления с диска при каждом вызове Fetch.
type File struct {
	path string
}

func NewFileSource(path string) ports.DataSource {
	return &File{path: path}
}

func (f *File) Fetch() ([]byte, error) {
	if f.path == "" {
		return nil, ErrNoPath
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s: %w", f.path, ErrNoData)
	}
	return data, nil
}
