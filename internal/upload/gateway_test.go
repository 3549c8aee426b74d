package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/homecare-backend/internal/storage"
)

// pngBytes минимальный валидный заголовок PNG для проверки магических байт.
var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

type fakeTargets struct {
	baseURL string
	counter int64
	err     error
}

func (f *fakeTargets) PresignUpload(ctx context.Context, fileType string) (*storage.UploadTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := atomic.AddInt64(&f.counter, 1)
	return &storage.UploadTarget{
		Method: http.MethodPut,
		URL:    fmt.Sprintf("%s/bucket/uploads/file%d", f.baseURL, n),
	}, nil
}

func textFile(name, content string) File {
	return File{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "text/plain",
		Data:        []byte(content),
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *fakeTargets, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	targets := &fakeTargets{baseURL: ts.URL}
	gw := NewGateway(targets, DefaultOptions())
	gw.SetHTTPClient(ts.Client())
	return gw, targets, ts
}

func acceptAll(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	w.WriteHeader(http.StatusOK)
}

func TestGatewayUploadsBatch(t *testing.T) {
	gw, _, _ := newTestGateway(t, acceptAll)

	var completed []Descriptor
	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{textFile("a.txt", "первый"), textFile("b.txt", "второй")},
		func(d []Descriptor) { completed = d },
	)

	assert.Empty(t, failures)
	assert.Len(t, descriptors, 2)
	assert.Equal(t, descriptors, completed)
	assert.Equal(t, "/objects/uploads/file1", descriptors[0].Path)
	assert.Equal(t, "a.txt", descriptors[0].Name)
}

// Батч сверх лимита отклоняется целиком: ни одного сетевого вызова,
// ни одного принятого файла.
func TestGatewayRejectsOversizedBatch(t *testing.T) {
	var requests int64
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusOK)
	})

	files := make([]File, 3)
	for i := range files {
		files[i] = textFile(fmt.Sprintf("f%d.txt", i), "данные")
	}

	// Уже выбрано 3 файла, лимит 5: батч из 3 не помещается.
	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 3, files, nil)

	assert.Empty(t, descriptors)
	assert.Len(t, failures, 1)
	var tooMany *ErrTooManyFiles
	assert.ErrorAs(t, failures[0], &tooMany)
	assert.Equal(t, int64(0), atomic.LoadInt64(&requests))
}

// Оверсайз и недопустимое расширение отсекаются до сети, остальные
// файлы батча загружаются.
func TestGatewayValidatesBeforeNetwork(t *testing.T) {
	var uploaded int64
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&uploaded, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	})

	oversized := File{
		Name:        "big.txt",
		Size:        11 * 1024 * 1024,
		ContentType: "text/plain",
		Data:        []byte("не имеет значения"),
	}
	badExt := textFile("script.exe", "MZ")
	good := textFile("ok.txt", "содержимое")

	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{oversized, badExt, good}, nil)

	assert.Len(t, descriptors, 1)
	assert.Equal(t, "ok.txt", descriptors[0].Name)
	assert.Len(t, failures, 2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&uploaded))
}

// Несовпадение магических байт с расширением отбраковывает файл.
func TestGatewayRejectsMismatchedContent(t *testing.T) {
	gw, _, _ := newTestGateway(t, acceptAll)

	disguised := File{
		Name:        "photo.txt",
		Size:        int64(len(pngBytes)),
		ContentType: "text/plain",
		Data:        pngBytes,
	}

	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{disguised}, nil)

	assert.Empty(t, descriptors)
	assert.Len(t, failures, 1)
}

func TestGatewayAcceptsMatchingImage(t *testing.T) {
	gw, _, _ := newTestGateway(t, acceptAll)

	img := File{
		Name:        "photo.png",
		Size:        int64(len(pngBytes)),
		ContentType: "image/png",
		Data:        pngBytes,
	}

	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{img}, nil)

	assert.Empty(t, failures)
	assert.Len(t, descriptors, 1)
}

// Отказ хранилища по одному файлу не прерывает загрузку остальных,
// callback вызывается только по успешным.
func TestGatewayPartialFailure(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if bytes.Contains(body, []byte("сломанный")) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	var completed []Descriptor
	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{textFile("bad.txt", "сломанный"), textFile("good.txt", "целый")},
		func(d []Descriptor) { completed = d },
	)

	assert.Len(t, descriptors, 1)
	assert.Equal(t, "good.txt", descriptors[0].Name)
	assert.Len(t, failures, 1)
	var fileErr *FileError
	assert.ErrorAs(t, failures[0], &fileErr)
	assert.Equal(t, "bad.txt", fileErr.Name)
	assert.Equal(t, descriptors, completed)
}

// При полном отказе callback не вызывается.
func TestGatewayNoCallbackOnTotalFailure(t *testing.T) {
	gw, _, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	called := false
	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{textFile("a.txt", "данные")},
		func([]Descriptor) { called = true },
	)

	assert.Empty(t, descriptors)
	assert.Len(t, failures, 1)
	assert.False(t, called)
}

func TestGatewayRejectsEmptyFile(t *testing.T) {
	gw, _, _ := newTestGateway(t, acceptAll)

	descriptors, failures := gw.Upload(context.Background(), storage.FileTypeProposal, 0,
		[]File{{Name: "empty.txt", Size: 0, ContentType: "text/plain"}}, nil)

	assert.Empty(t, descriptors)
	assert.Len(t, failures, 1)
}
