package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AddOutcome описывает результат добавления файла в пачку.
type AddOutcome int

const (
	// Added - файл добавлен, пачка ждет окончания окна.
	Added AddOutcome = iota
	// Full - достигнута емкость, пачка уже помечена обрабатываемой
	// и ее файлы возвращены вызывающему.
	Full
	// Overflow - файл пришел в заполненную пачку и отброшен.
	Overflow
	// Busy - предыдущая пачка этого чата еще обрабатывается.
	Busy
)

// fileBatch - файлы, накопленные для одного чата.
type fileBatch struct {
	docs       []*tgbotapi.Document
	timer      *time.Timer
	processing bool
	// sealed - пачка заполнилась; до sealedUntil новые файлы чата отклоняются.
	sealed      bool
	sealedUntil time.Time
	updatedAt   time.Time
}

// BatchStore - потокобезопасное хранилище пачек файлов по идентификатору чата.
// Telegram присылает каждый файл альбома отдельным сообщением, поэтому файлы
// копятся в течение окна window и обрабатываются вместе.
type BatchStore struct {
	mu       sync.Mutex
	batches  map[int64]*fileBatch
	capacity int
	window   time.Duration
}

// NewBatchStore создает новый экземпляр BatchStore.
func NewBatchStore(capacity int, window time.Duration) *BatchStore {
	return &BatchStore{
		batches:  make(map[int64]*fileBatch),
		capacity: capacity,
		window:   window,
	}
}

// Add добавляет документ в пачку чата. onTimeout вызывается в отдельной
// горутине, когда окно накопления истекло без новых файлов.
//
// При достижении емкости пачка в той же критической секции помечается
// обрабатываемой и запечатывается на окно window: Add возвращает Full вместе
// с файлами пачки, а каждый следующий файл в пределах окна получает Overflow
// независимо от того, завершилась ли обработка.
func (s *BatchStore) Add(chatID int64, doc *tgbotapi.Document, onTimeout func()) (AddOutcome, []*tgbotapi.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	batch, ok := s.batches[chatID]
	if ok && batch.sealed {
		switch {
		case now.Before(batch.sealedUntil):
			batch.sealedUntil = now.Add(s.window)
			batch.updatedAt = now
			return Overflow, nil
		case batch.processing:
			return Busy, nil
		default:
			delete(s.batches, chatID)
			ok = false
		}
	}
	if ok && batch.processing {
		return Busy, nil
	}

	if !ok {
		batch = &fileBatch{}
		s.batches[chatID] = batch
	}
	batch.docs = append(batch.docs, doc)
	batch.updatedAt = now

	if len(batch.docs) >= s.capacity {
		stopTimer(batch)
		batch.processing = true
		batch.sealed = true
		batch.sealedUntil = now.Add(s.window)
		return Full, copyDocs(batch.docs)
	}

	if batch.timer == nil {
		batch.timer = time.AfterFunc(s.window, onTimeout)
	} else {
		batch.timer.Reset(s.window)
	}
	return Added, nil
}

// Take помечает пачку как обрабатываемую и возвращает ее файлы.
// Повторный вызов для той же пачки возвращает false.
func (s *BatchStore) Take(chatID int64) ([]*tgbotapi.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[chatID]
	if !ok || batch.processing || batch.sealed {
		return nil, false
	}
	stopTimer(batch)
	batch.processing = true
	batch.updatedAt = time.Now()
	return copyDocs(batch.docs), true
}

// Clear завершает обработку пачки чата. Запечатанная пачка остается без
// файлов до конца окна, чтобы лишние файлы получили Overflow; остальные
// пачки удаляются.
func (s *BatchStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, ok := s.batches[chatID]
	if !ok {
		return
	}
	stopTimer(batch)
	if batch.sealed && time.Now().Before(batch.sealedUntil) {
		batch.docs = nil
		batch.processing = false
		return
	}
	delete(s.batches, chatID)
}

// Len возвращает количество файлов в пачке чата.
func (s *BatchStore) Len(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch, ok := s.batches[chatID]; ok {
		return len(batch.docs)
	}
	return 0
}

// CleanupStale удаляет пачки, которые не менялись дольше maxAge,
// и возвращает их количество.
func (s *BatchStore) CleanupStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	deadline := time.Now().Add(-maxAge)
	for chatID, batch := range s.batches {
		if batch.updatedAt.Before(deadline) {
			stopTimer(batch)
			delete(s.batches, chatID)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker запускает периодическое удаление зависших пачек.
func (s *BatchStore) StartCleanupTicker(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupStale(maxAge)
			}
		}
	}()
}

func copyDocs(docs []*tgbotapi.Document) []*tgbotapi.Document {
	out := make([]*tgbotapi.Document, len(docs))
	copy(out, docs)
	return out
}

func stopTimer(batch *fileBatch) {
	if batch.timer != nil {
		batch.timer.Stop()
	}
}
