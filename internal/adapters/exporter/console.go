package exporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chatlas/internal/domain"
)

// ConsoleExporter выводит результат в консоль. Таблица сохраняется в файл
// в каталоге outDir, а в консоль печатается путь к нему.
type ConsoleExporter struct {
	out    io.Writer
	outDir string
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter(out io.Writer, outDir string) *ConsoleExporter {
	if out == nil {
		out = os.Stdout
	}
	if outDir == "" {
		outDir = "."
	}
	return &ConsoleExporter{out: out, outDir: outDir}
}

// Export выводит результат обработки одного файла.
func (e *ConsoleExporter) Export(result *domain.RenderResult) error {
	if result == nil {
		return errors.New("nil render result")
	}

	switch result.Kind {
	case domain.RenderKindText:
		_, err := fmt.Fprintln(e.out, result.Text.Body)
		return err
	case domain.RenderKindSpreadsheet:
		report := result.Spreadsheet
		if len(report.Content) == 0 {
			return errors.New("spreadsheet content is empty")
		}
		path, err := writeUnique(e.outDir, report.FileName, report.Content)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.out, "Найдено участников: %d, упоминаний: %d. Таблица сохранена в %s\n",
			result.ParticipantCount, result.MentionCount, path)
		return err
	default:
		return fmt.Errorf("unknown render kind %q", result.Kind)
	}
}

// maxNameAttempts ограничивает перебор суффиксов имени файла.
const maxNameAttempts = 1000

// writeUnique создает новый файл в dir и никогда не перезаписывает
// существующий: при совпадении имени к нему добавляется суффикс _1, _2 и т.д.
func writeUnique(dir, name string, content []byte) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}
