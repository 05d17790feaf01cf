package parser

import (
	"bytes"
	"log/slog"
	"strconv"

	"chatlas/internal/domain"

	"github.com/go-faster/jx"
	"golang.org/x/xerrors"
)

// JsonParser разбирает экспорт истории чата Telegram Desktop.
// Неизвестные поля пропускаются, поля неожиданного типа считаются отсутствующими.
type JsonParser struct {
	logger *slog.Logger
}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser(logger *slog.Logger) *JsonParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &JsonParser{logger: logger}
}

// Decode преобразует срез байт с JSON в нормализованный документ.
func (p *JsonParser) Decode(data []byte, fileName string) (*domain.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &domain.DecodeError{Kind: domain.DecodeEmpty, FileName: fileName}
	}

	// Весь ввод проверяется заранее: обход ниже пропускает значения неожиданного типа.
	if err := jx.DecodeBytes(data).Validate(); err != nil {
		return nil, &domain.DecodeError{Kind: domain.DecodeMalformed, FileName: fileName, Err: err}
	}

	d := jx.DecodeBytes(data)
	if t := d.Next(); t != jx.Object {
		return nil, &domain.DecodeError{
			Kind:     domain.DecodeMalformed,
			FileName: fileName,
			Err:      xerrors.Errorf("export root must be an object, got %v", t),
		}
	}

	doc, err := decodeDocument(d)
	if err != nil {
		return nil, &domain.DecodeError{Kind: domain.DecodeMalformed, FileName: fileName, Err: err}
	}

	p.logger.Debug("export decoded",
		slog.String("file", fileName),
		slog.Int("message_count", doc.MessageCount()),
		slog.Bool("messages_present", doc.Messages != nil),
	)
	return doc, nil
}

func decodeDocument(d *jx.Decoder) (*domain.Document, error) {
	doc := &domain.Document{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			doc.Name, err = optString(d)
		case "type":
			doc.Type, err = optString(d)
		case "id":
			doc.ID, err = optInt64(d)
		case "messages":
			doc.Messages, err = decodeMessages(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeMessages(d *jx.Decoder) ([]*domain.Message, error) {
	switch t := d.Next(); t {
	case jx.Null:
		return nil, d.Null()
	case jx.Array:
	default:
		return nil, xerrors.Errorf("messages must be an array, got %v", t)
	}

	messages := make([]*domain.Message, 0)
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.Object:
			msg, err := decodeMessage(d)
			if err != nil {
				return xerrors.Errorf("message #%d: %w", len(messages), err)
			}
			messages = append(messages, msg)
			return nil
		case jx.Null:
			messages = append(messages, nil)
			return d.Null()
		default:
			// Скаляр вместо объекта сообщения: сохраняем как пустую позицию.
			messages = append(messages, nil)
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func decodeMessage(d *jx.Decoder) (*domain.Message, error) {
	msg := &domain.Message{}
	var (
		fragments   []domain.TextEntity
		hasEntities bool
	)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			id, err := optInt64(d)
			if id != nil {
				msg.ID = *id
			}
			return err
		case "type":
			s, err := optString(d)
			if s != nil {
				msg.Type = *s
			}
			return err
		case "date":
			s, err := optString(d)
			if s != nil {
				msg.Date = *s
			}
			return err
		case "from":
			var err error
			msg.From, err = optString(d)
			return err
		case "from_id":
			var err error
			msg.FromID, err = idString(d)
			return err
		case "text":
			var err error
			fragments, err = decodeText(d)
			return err
		case "text_entities":
			entities, present, err := decodeEntities(d)
			if present {
				msg.TextEntities = entities
				hasEntities = true
			}
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}

	// text_entities приоритетнее: text используется только для старых экспортов без него.
	if !hasEntities {
		msg.TextEntities = fragments
	}
	return msg, nil
}

// decodeText восстанавливает фрагменты из поля text, которое бывает строкой
// или массивом из строк и объектов {type, text}.
func decodeText(d *jx.Decoder) ([]domain.TextEntity, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil || s == "" {
			return nil, err
		}
		return []domain.TextEntity{{Type: domain.EntityTypePlain, Text: &s}}, nil
	case jx.Array:
		var fragments []domain.TextEntity
		err := d.Arr(func(d *jx.Decoder) error {
			switch d.Next() {
			case jx.String:
				s, err := d.Str()
				if err != nil {
					return err
				}
				fragments = append(fragments, domain.TextEntity{Type: domain.EntityTypePlain, Text: &s})
				return nil
			case jx.Object:
				e, err := decodeEntity(d)
				if err != nil {
					return err
				}
				fragments = append(fragments, e)
				return nil
			default:
				return d.Skip()
			}
		})
		return fragments, err
	default:
		return nil, d.Skip()
	}
}

// decodeEntities возвращает present == false, если поле равно null или имеет не тот тип.
func decodeEntities(d *jx.Decoder) ([]domain.TextEntity, bool, error) {
	if d.Next() != jx.Array {
		return nil, false, d.Skip()
	}
	entities := make([]domain.TextEntity, 0)
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.Object {
			return d.Skip()
		}
		e, err := decodeEntity(d)
		if err != nil {
			return err
		}
		entities = append(entities, e)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return entities, true, nil
}

func decodeEntity(d *jx.Decoder) (domain.TextEntity, error) {
	var e domain.TextEntity
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			s, err := optString(d)
			if s != nil {
				e.Type = *s
			}
			return err
		case "text":
			var err error
			e.Text, err = optString(d)
			return err
		default:
			return d.Skip()
		}
	})
	return e, err
}

func optString(d *jx.Decoder) (*string, error) {
	if d.Next() != jx.String {
		return nil, d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func optInt64(d *jx.Decoder) (*int64, error) {
	if d.Next() != jx.Number {
		return nil, d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return nil, err
	}
	v, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		// Дробные и слишком большие значения считаем отсутствующими.
		return nil, nil
	}
	return &v, nil
}

// idString принимает идентификатор отправителя в виде строки или числа.
func idString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return string(n), nil
	default:
		return "", d.Skip()
	}
}
