package domain

import "fmt"

// DecodeErrorKind различает причины ошибки разбора.
type DecodeErrorKind int

const (
	// DecodeEmpty — входные данные пусты или состоят из пробелов.
	DecodeEmpty DecodeErrorKind = iota + 1
	// DecodeMalformed — данные не являются корректным JSON или имеют неизвестную форму.
	DecodeMalformed
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeEmpty:
		return "empty"
	case DecodeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError возвращается парсером экспорта.
type DecodeError struct {
	Kind     DecodeErrorKind
	FileName string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s input: %v", e.FileName, e.Kind, e.Err)
	}
	return fmt.Sprintf("decode %s: %s input", e.FileName, e.Kind)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ExtractionReason описывает причину ошибки извлечения.
type ExtractionReason string

const ReasonNullDocument ExtractionReason = "null document"

// ExtractionError возвращается, только если документ не передан вовсе.
type ExtractionError struct {
	Reason ExtractionReason
}

func (e *ExtractionError) Error() string {
	return "extract: " + string(e.Reason)
}

// RenderError возвращается, если не удалось сформировать байты таблицы.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: encoding failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Stage — этап конвейера обработки.
type Stage string

const (
	StageDecode  Stage = "decode"
	StageExtract Stage = "extract"
	StageRender  Stage = "render"
)

// ProcessingError объединяет ошибки всех этапов конвейера.
type ProcessingError struct {
	Stage    Stage
	FileName string
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process %s: stage %s: %v", e.FileName, e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
