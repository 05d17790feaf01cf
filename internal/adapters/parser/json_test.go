package parser

import (
	"errors"
	"testing"

	"chatlas/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeKind(t *testing.T, err error) domain.DecodeErrorKind {
	t.Helper()
	var decodeErr *domain.DecodeError
	require.True(t, errors.As(err, &decodeErr), "ожидалась DecodeError, получено %v", err)
	return decodeErr.Kind
}

func TestJsonParser(t *testing.T) {
	t.Run("NewJsonParser создает корректный экземпляр", func(t *testing.T) {
		parser := NewJsonParser(nil)
		require.NotNil(t, parser)
		assert.NotNil(t, parser.logger)
	})

	t.Run("Разбор корректного JSON", func(t *testing.T) {
		testData := `{
			"name": "Test Chat",
			"type": "private_group",
			"id": 12345,
			"messages": [
				{
					"id": 1,
					"type": "message",
					"date": "2023-01-01T00:00:00",
					"from": "John Doe",
					"from_id": "user123",
					"text": "Hello, World!",
					"text_entities": [{"type": "plain", "text": "Hello, World!"}]
				}
			]
		}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)

		require.NotNil(t, doc.Name)
		assert.Equal(t, "Test Chat", *doc.Name)
		require.NotNil(t, doc.Type)
		assert.Equal(t, "private_group", *doc.Type)
		require.NotNil(t, doc.ID)
		assert.Equal(t, int64(12345), *doc.ID)

		require.Len(t, doc.Messages, 1)
		msg := doc.Messages[0]
		assert.Equal(t, int64(1), msg.ID)
		assert.Equal(t, "message", msg.Type)
		assert.Equal(t, "2023-01-01T00:00:00", msg.Date)
		require.NotNil(t, msg.From)
		assert.Equal(t, "John Doe", *msg.From)
		assert.Equal(t, "user123", msg.FromID)
		assert.Equal(t, "Hello, World!", msg.Text())
	})

	t.Run("Неизвестные поля пропускаются", func(t *testing.T) {
		testData := `{
			"name": "Chat",
			"extra": {"nested": [1, 2, {"deep": true}]},
			"messages": [
				{"id": 1, "from": "A", "from_id": "user1", "reactions": [{"emoji": "👍"}], "photo": "photo.jpg"}
			],
			"trailer": null
		}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)
		require.Len(t, doc.Messages, 1)
		assert.Equal(t, "user1", doc.Messages[0].FromID)
	})

	t.Run("Поле text в виде массива строк и объектов", func(t *testing.T) {
		testData := `{"messages": [{
			"id": 7,
			"from": "A",
			"from_id": "user1",
			"text": ["Привет, ", {"type": "mention", "text": "@alice"}, "!"]
		}]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)
		require.Len(t, doc.Messages, 1)

		entities := doc.Messages[0].TextEntities
		require.Len(t, entities, 3)
		assert.Equal(t, domain.EntityTypePlain, entities[0].Type)
		assert.True(t, entities[1].IsMention())
		assert.Equal(t, "@alice", *entities[1].Text)
		assert.Equal(t, "Привет, @alice!", doc.Messages[0].Text())
	})

	t.Run("text_entities приоритетнее поля text", func(t *testing.T) {
		testData := `{"messages": [{
			"id": 1,
			"text": ["ignored ", {"type": "mention", "text": "@old"}],
			"text_entities": [{"type": "mention", "text": "@new"}]
		}]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)

		entities := doc.Messages[0].TextEntities
		require.Len(t, entities, 1)
		assert.Equal(t, "@new", *entities[0].Text)
	})

	t.Run("Сущность с text равным null сохраняется", func(t *testing.T) {
		testData := `{"messages": [{"id": 1, "text_entities": [{"type": "mention", "text": null}]}]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)

		entities := doc.Messages[0].TextEntities
		require.Len(t, entities, 1)
		assert.True(t, entities[0].IsMention())
		assert.Nil(t, entities[0].Text)
	})

	t.Run("from равный null и отсутствующий from различаются с пустой строкой", func(t *testing.T) {
		testData := `{"messages": [
			{"id": 1, "from": null, "from_id": "user1"},
			{"id": 2, "from_id": "user2"},
			{"id": 3, "from": "", "from_id": "user3"}
		]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)
		require.Len(t, doc.Messages, 3)

		assert.Nil(t, doc.Messages[0].From)
		assert.Nil(t, doc.Messages[1].From)
		require.NotNil(t, doc.Messages[2].From)
		assert.Equal(t, "", *doc.Messages[2].From)
	})

	t.Run("Числовой from_id преобразуется в строку", func(t *testing.T) {
		testData := `{"messages": [{"id": 1, "from": "A", "from_id": 123456789}]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)
		assert.Equal(t, "123456789", doc.Messages[0].FromID)
	})

	t.Run("null внутри массива сообщений сохраняется как пустая позиция", func(t *testing.T) {
		testData := `{"messages": [null, {"id": 2, "from": "B", "from_id": "user2"}, 42]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)
		require.Len(t, doc.Messages, 3)
		assert.Nil(t, doc.Messages[0])
		assert.NotNil(t, doc.Messages[1])
		assert.Nil(t, doc.Messages[2])
	})

	t.Run("Отсутствующий массив сообщений", func(t *testing.T) {
		doc, err := NewJsonParser(nil).Decode([]byte(`{"name": "Chat"}`), "result.json")
		require.NoError(t, err)
		assert.Nil(t, doc.Messages)
		assert.Equal(t, 0, doc.MessageCount())
	})

	t.Run("Пустой массив сообщений", func(t *testing.T) {
		doc, err := NewJsonParser(nil).Decode([]byte(`{"messages": []}`), "result.json")
		require.NoError(t, err)
		assert.NotNil(t, doc.Messages)
		assert.Empty(t, doc.Messages)
	})

	t.Run("Пустые данные возвращают ошибку DecodeEmpty", func(t *testing.T) {
		for _, input := range []string{"", "   ", "\n\t "} {
			_, err := NewJsonParser(nil).Decode([]byte(input), "empty.json")
			require.Error(t, err)
			assert.Equal(t, domain.DecodeEmpty, decodeKind(t, err))
		}
	})

	t.Run("Разбор некорректного JSON возвращает ошибку", func(t *testing.T) {
		_, err := NewJsonParser(nil).Decode([]byte(`{"name": "Chat", "messages": [`), "broken.json")
		require.Error(t, err)
		assert.Equal(t, domain.DecodeMalformed, decodeKind(t, err))
		assert.Contains(t, err.Error(), "broken.json")
	})

	t.Run("Корень не объект возвращает ошибку", func(t *testing.T) {
		for _, input := range []string{`[1, 2]`, `"text"`, `42`, `null`} {
			_, err := NewJsonParser(nil).Decode([]byte(input), "result.json")
			require.Error(t, err, input)
			assert.Equal(t, domain.DecodeMalformed, decodeKind(t, err))
		}
	})

	t.Run("messages неверного типа возвращает ошибку", func(t *testing.T) {
		_, err := NewJsonParser(nil).Decode([]byte(`{"messages": "nope"}`), "result.json")
		require.Error(t, err)
		assert.Equal(t, domain.DecodeMalformed, decodeKind(t, err))
	})

	t.Run("Поля неверного типа считаются отсутствующими", func(t *testing.T) {
		testData := `{"name": 5, "id": "abc", "messages": [{"id": 1.5, "from": 10, "from_id": true, "text_entities": "x"}]}`

		doc, err := NewJsonParser(nil).Decode([]byte(testData), "result.json")
		require.NoError(t, err)
		assert.Nil(t, doc.Name)
		assert.Nil(t, doc.ID)

		msg := doc.Messages[0]
		assert.Equal(t, int64(0), msg.ID)
		assert.Nil(t, msg.From)
		assert.Empty(t, msg.FromID)
		assert.Nil(t, msg.TextEntities)
	})
}
