package bot

import (
	"errors"
	"fmt"

	"chatlas/internal/domain"
)

const (
	startText = "Привет! Я бот Chatlas.\n\n" +
		"Пришлите мне один или несколько JSON-файлов экспорта чата из Telegram Desktop. " +
		"Я найду в них участников и упоминания и верну результат.\n\n" +
		"Если нужна справка, используйте команду /help."

	helpText = "Что я умею:\n\n" +
		"- Принимаю JSON-экспорт истории чата (Telegram Desktop → Export chat history → JSON).\n" +
		"- Для каждого файла нахожу участников и упоминания.\n" +
		"- Если найдено меньше 51 записи, отправляю список прямо в чат.\n" +
		"- Если 51 и больше, формирую и отправляю Excel-файл.\n\n" +
		"За один раз можно отправить до %d файлов. %s"

	noStorageNote = "Файлы не сохраняются и обрабатываются на лету."
	// cacheNote - для включенного кэша результатов; %d - время хранения в минутах.
	cacheNote = "Сами файлы не сохраняются, но результат обработки хранится в памяти до %d мин., " +
		"чтобы повторно присланный файл обработался быстрее."

	plainTextHint = "Я жду JSON-файлы экспорта чата.\n\n" +
		"1) В Telegram Desktop сделайте экспорт истории чата в формате JSON.\n" +
		"2) Пришлите полученный .json-файл сюда как документ.\n" +
		"3) Я обработаю его и верну результат.\n\n" +
		"Подробности - команда /help."

	unknownCommandText = "Неизвестная команда. Используйте /start или /help."
	notJSONText        = "Я принимаю только JSON-файлы экспорта чата (расширение .json). " +
		"Проверьте, что вы отправили именно экспорт истории чата Telegram Desktop."
	busyText          = "Пожалуйста, подождите завершения обработки предыдущих файлов, прежде чем отправлять новые."
	overflowText      = "Превышен лимит файлов в одном сообщении: можно отправить не более %d файлов. Лишние файлы не обработаны, отправьте их отдельным сообщением чуть позже."
	tooLargeText      = "Файл \"%s\" слишком большой: максимальный размер %d МБ."
	downloadErrorText = "Не удалось скачать файл \"%s\". Попробуйте отправить его еще раз."
	processingText    = "Получено файлов: %d. Начинаю обработку..."
)

var errFileTooLarge = errors.New("file exceeds size limit")

// userMessageFor переводит ошибку обработки файла в сообщение для пользователя.
// Текст исходной ошибки пользователю не показывается.
func userMessageFor(err error, fileName string) string {
	var procErr *domain.ProcessingError
	if !errors.As(err, &procErr) {
		return fmt.Sprintf("Произошла непредвиденная ошибка при обработке файла \"%s\". Попробуйте ещё раз позже.", fileName)
	}

	switch procErr.Stage {
	case domain.StageDecode:
		var decodeErr *domain.DecodeError
		if errors.As(err, &decodeErr) && decodeErr.Kind == domain.DecodeEmpty {
			return fmt.Sprintf("Файл \"%s\" пуст.", fileName)
		}
		return fmt.Sprintf("Файл \"%s\" не похож на экспорт истории чата Telegram в формате JSON. "+
			"Проверьте, что экспорт сделан в Telegram Desktop с форматом JSON.", fileName)
	case domain.StageExtract:
		return fmt.Sprintf("Не удалось проанализировать файл \"%s\".", fileName)
	case domain.StageRender:
		return fmt.Sprintf("Не удалось сформировать Excel-файл для \"%s\". Попробуйте ещё раз позже.", fileName)
	default:
		return fmt.Sprintf("Произошла непредвиденная ошибка при обработке файла \"%s\". Попробуйте ещё раз позже.", fileName)
	}
}
