package keystore

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"sync"
)

// FileStore - долговременный список ключей: плоский файл, один ключ на
// строку. Мьютекс защищает read-modify-write внутри процесса; гонка между
// процессами остается и задокументирована как деградация запасного пути.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load читает весь список. Любая ошибка чтения трактуется как пустой файл.
func (s *FileStore) Load() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() []string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("keys file not readable", slog.String("path", s.path), slog.String("error", err.Error()))
		return nil
	}

	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys
}

func (s *FileStore) saveLocked(keys []string) error {
	if err := os.WriteFile(s.path, []byte(strings.Join(keys, "\n")), 0o644); err != nil {
		return fmt.Errorf("failed to write keys file: %w", err)
	}
	return nil
}

// TakeOne забирает произвольный ключ из файла и переписывает файл без него.
func (s *FileStore) TakeOne() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.loadLocked()
	if len(keys) == 0 {
		return "", false
	}

	i := rand.Intn(len(keys))
	key := keys[i]
	keys = append(keys[:i], keys[i+1:]...)

	if err := s.saveLocked(keys); err != nil {
		// Ключ все равно считается выданным, запись лучшая из возможных.
		s.logger.Error("failed to persist keys after take", slog.String("error", err.Error()))
	}
	return key, true
}

// Append дописывает ключи в конец списка.
func (s *FileStore) Append(keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := append(s.loadLocked(), keys...)
	return s.saveLocked(all)
}

// Count - число ключей в файле.
func (s *FileStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loadLocked())
}
