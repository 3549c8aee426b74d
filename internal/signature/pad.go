package signature

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/ignatzorin/homecare-backend/internal/pkg/apperror"
)

// Размеры растра подписи.
const (
	canvasWidth  = 400
	canvasHeight = 160
)

// Point точка штриха в координатах поверхности подписи.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke непрерывный штрих от касания до отрыва.
type Stroke []Point

// Capture итог подписания: растр подписи, имя подписанта, момент
// подписания и определённый по мере возможности публичный IP.
type Capture struct {
	Signature  string    `json:"signature"`
	SignerName string    `json:"signer_name"`
	SignedAt   time.Time `json:"signed_at"`
	IPAddress  string    `json:"ip_address,omitempty"`
}

// IPResolver определяет публичный IP подписанта. Отказ не фатален.
type IPResolver interface {
	Resolve(ctx context.Context) string
}

// Pad накапливает штрихи подписи и контролирует условия отправки:
// обязательны непустое (после обрезки пробелов) имя подписанта
// и хотя бы один нарисованный штрих. Ни одно условие по отдельности
// не достаточно.
type Pad struct {
	strokes []Stroke
}

// NewPad создаёт пустую поверхность подписи.
func NewPad() *Pad {
	return &Pad{}
}

// AddStroke добавляет завершённый штрих. Пустые штрихи игнорируются.
func (p *Pad) AddStroke(stroke Stroke) {
	if len(stroke) == 0 {
		return
	}
	p.strokes = append(p.strokes, stroke)
}

// Clear сбрасывает растр, возвращая поверхность в исходное состояние.
func (p *Pad) Clear() {
	p.strokes = nil
}

// HasStrokes сообщает, нарисовано ли что-нибудь.
func (p *Pad) HasStrokes() bool {
	return len(p.strokes) > 0
}

// CanSubmit проверяет условия отправки подписи.
func (p *Pad) CanSubmit(signerName string) error {
	if strings.TrimSpace(signerName) == "" {
		return apperror.New(apperror.ErrCodeValidation, "укажите имя подписанта")
	}
	if !p.HasStrokes() {
		return apperror.New(apperror.ErrCodeValidation, "поставьте подпись перед отправкой")
	}
	return nil
}

// Submit растеризует подпись и формирует итог подписания.
// IP определяется по мере возможности: отказ резолвера даёт пустой IP,
// подписание при этом не блокируется.
func (p *Pad) Submit(ctx context.Context, signerName string, resolver IPResolver) (*Capture, error) {
	if err := p.CanSubmit(signerName); err != nil {
		return nil, err
	}

	ip := ""
	if resolver != nil {
		ip = resolver.Resolve(ctx)
	}

	return &Capture{
		Signature:  p.Rasterize(),
		SignerName: strings.TrimSpace(signerName),
		SignedAt:   time.Now().UTC(),
		IPAddress:  ip,
	}, nil
}

// Rasterize отрисовывает штрихи на белом холсте и кодирует PNG
// в data URL.
func (p *Pad) Rasterize() string {
	img := image.NewRGBA(image.Rect(0, 0, canvasWidth, canvasHeight))
	for y := 0; y < canvasHeight; y++ {
		for x := 0; x < canvasWidth; x++ {
			img.Set(x, y, color.White)
		}
	}

	ink := color.RGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	for _, stroke := range p.strokes {
		for i := 1; i < len(stroke); i++ {
			drawLine(img, stroke[i-1], stroke[i], ink)
		}
		if len(stroke) == 1 {
			setPixel(img, stroke[0], ink)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ""
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// drawLine отрисовывает отрезок между двумя точками штриха.
func drawLine(img *image.RGBA, from, to Point, ink color.RGBA) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		setPixel(img, from, ink)
		return
	}

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		setPixel(img, Point{X: from.X + dx*t, Y: from.Y + dy*t}, ink)
	}
}

func setPixel(img *image.RGBA, p Point, ink color.RGBA) {
	x := int(math.Round(p.X))
	y := int(math.Round(p.Y))
	if x < 0 || x >= canvasWidth || y < 0 || y >= canvasHeight {
		return
	}
	img.SetRGBA(x, y, ink)
}
