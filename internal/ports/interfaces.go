package ports

import (
	"chatlas/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных чата.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
	// Name возвращает имя файла, под которым данные были получены.
	Name() string
}

// Decoder преобразует сырые данные экспорта в нормализованный документ.
type Decoder interface {
	Decode(data []byte, fileName string) (*domain.Document, error)
}

// Extractor извлекает участников и упоминания из документа.
type Extractor interface {
	Extract(doc *domain.Document) (*domain.AnalysisResult, error)
}

// Renderer выбирает форму результата и упаковывает его.
type Renderer interface {
	Render(result *domain.AnalysisResult) (*domain.RenderResult, error)
}

// SpreadsheetEncoder формирует байты файла таблицы.
type SpreadsheetEncoder interface {
	Encode(report *domain.SpreadsheetReport) ([]byte, error)
}

// ChatProcessor — полный конвейер обработки одного файла экспорта.
type ChatProcessor interface {
	Process(data []byte, fileName string) (*domain.RenderResult, error)
}

// Exporter определяет интерфейс для вывода результата.
type Exporter interface {
	Export(result *domain.RenderResult) error
}
