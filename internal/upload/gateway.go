package upload

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/ignatzorin/homecare-backend/internal/logger"
	"github.com/ignatzorin/homecare-backend/internal/storage"
)

// File кандидат на загрузку в объектное хранилище.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// Descriptor нормализованное описание успешно загруженного файла.
// Path собирается из последних двух сегментов URL хранилища
// под префиксом /objects — контракт с маршрутом раздачи объектов.
type Descriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

// FileError ошибка обработки конкретного файла в батче.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("файл %s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ErrTooManyFiles возвращается, когда батч превышает лимит по количеству.
// Батч отклоняется целиком, частичный приём не выполняется.
type ErrTooManyFiles struct {
	Limit int
}

func (e *ErrTooManyFiles) Error() string {
	return fmt.Sprintf("превышен лимит количества файлов (%d)", e.Limit)
}

// TargetProvider выдаёт предподписанные цели загрузки.
type TargetProvider interface {
	PresignUpload(ctx context.Context, fileType string) (*storage.UploadTarget, error)
}

// Options параметры валидации батча.
type Options struct {
	MaxFiles          int
	MaxFileBytes      int64
	AllowedExtensions []string
}

// DefaultOptions ограничения для вложений предложения.
func DefaultOptions() Options {
	return Options{
		MaxFiles:          5,
		MaxFileBytes:      10 * 1024 * 1024,
		AllowedExtensions: []string{".pdf", ".doc", ".docx", ".jpg", ".jpeg", ".png", ".txt"},
	}
}

// ContractOptions ограничения для загрузки договора: один документ.
func ContractOptions() Options {
	return Options{
		MaxFiles:          1,
		MaxFileBytes:      10 * 1024 * 1024,
		AllowedExtensions: []string{".pdf", ".doc", ".docx"},
	}
}

// Gateway загружает файлы в объектное хранилище через предподписанные PUT.
// Файлы в батче загружаются последовательно; отказ одного файла не
// прерывает загрузку остальных.
type Gateway struct {
	targets TargetProvider
	client  *http.Client
	opts    Options
	allowed map[string]struct{}
}

// NewGateway создаёт шлюз загрузки с заданными ограничениями.
func NewGateway(targets TargetProvider, opts Options) *Gateway {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 5
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 10 * 1024 * 1024
	}

	allowed := make(map[string]struct{}, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &Gateway{
		targets: targets,
		client:  &http.Client{Timeout: 60 * time.Second},
		opts:    opts,
		allowed: allowed,
	}
}

// SetHTTPClient заменяет HTTP клиент (используется в тестах).
func (g *Gateway) SetHTTPClient(client *http.Client) {
	g.client = client
}

// Upload обрабатывает батч файлов.
// existingCount — сколько файлов уже выбрано в текущем контексте: если
// батч не помещается в лимит, он отклоняется целиком. Оверсайз и
// недопустимое расширение отсекают файл до каких-либо сетевых вызовов.
// onComplete вызывается только если успешно загружен хотя бы один файл.
func (g *Gateway) Upload(
	ctx context.Context,
	fileType string,
	existingCount int,
	files []File,
	onComplete func([]Descriptor),
) ([]Descriptor, []error) {
	if existingCount+len(files) > g.opts.MaxFiles {
		return nil, []error{&ErrTooManyFiles{Limit: g.opts.MaxFiles}}
	}

	var failures []error

	// Предварительная валидация: отбраковка без сети.
	candidates := make([]File, 0, len(files))
	for _, f := range files {
		if err := g.validate(f); err != nil {
			failures = append(failures, &FileError{Name: f.Name, Err: err})
			continue
		}
		candidates = append(candidates, f)
	}

	descriptors := make([]Descriptor, 0, len(candidates))
	for _, f := range candidates {
		desc, err := g.uploadOne(ctx, fileType, f)
		if err != nil {
			failures = append(failures, &FileError{Name: f.Name, Err: err})
			if logger.Log != nil {
				logger.Log.WithField("file", f.Name).Warnf("upload: загрузка не удалась: %v", err)
			}
			continue
		}
		descriptors = append(descriptors, *desc)
	}

	if len(descriptors) > 0 && onComplete != nil {
		onComplete(descriptors)
	}

	return descriptors, failures
}

// validate проверяет размер, расширение и магические байты файла.
func (g *Gateway) validate(f File) error {
	if f.Size > g.opts.MaxFileBytes {
		return fmt.Errorf("размер %d байт превышает лимит %d байт", f.Size, g.opts.MaxFileBytes)
	}
	if f.Size == 0 {
		return fmt.Errorf("файл пустой")
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if _, ok := g.allowed[ext]; !ok {
		return fmt.Errorf("расширение %s не разрешено", ext)
	}

	// Сверяем магические байты с расширением. Для форматов без сигнатуры
	// (txt) filetype возвращает Unknown — это допустимо.
	head := f.Data
	if len(head) > 512 {
		head = head[:512]
	}
	kind, err := filetype.Match(head)
	if err != nil {
		return fmt.Errorf("не удалось определить тип файла: %w", err)
	}
	if kind != filetype.Unknown {
		detected := "." + kind.Extension
		if !extensionsCompatible(ext, detected) {
			return fmt.Errorf("расширение %s не соответствует реальному типу (%s)", ext, detected)
		}
	}

	return nil
}

// uploadOne получает предподписанный URL и выполняет прямой PUT байтов файла.
func (g *Gateway) uploadOne(ctx context.Context, fileType string, f File) (*Descriptor, error) {
	target, err := g.targets.PresignUpload(ctx, fileType)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить цель загрузки: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, target.Method, target.URL, bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("не удалось сформировать запрос: %w", err)
	}
	req.Header.Set("Content-Type", f.ContentType)
	req.ContentLength = f.Size

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка сети при загрузке: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("хранилище ответило статусом %d", resp.StatusCode)
	}

	path, err := storage.NormalizeObjectPath(target.URL)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		Name: f.Name,
		Size: f.Size,
		Type: f.ContentType,
		URL:  target.URL,
		Path: path,
	}, nil
}

// extensionsCompatible учитывает семейства расширений: .jpg и .jpeg —
// одно и то же, .docx определяется как zip-контейнер.
func extensionsCompatible(ext, detected string) bool {
	if ext == detected {
		return true
	}
	if (ext == ".jpg" && detected == ".jpeg") || (ext == ".jpeg" && detected == ".jpg") {
		return true
	}
	if (ext == ".docx" && detected == ".zip") || (ext == ".docx" && detected == ".docx") {
		return true
	}
	if ext == ".doc" && detected == ".doc" {
		return true
	}
	return false
}
