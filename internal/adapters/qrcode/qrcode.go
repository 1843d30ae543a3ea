// Package qrcode renders the printable codes of review campaigns.
package qrcode

import (
	"fmt"

	qr "github.com/skip2/go-qrcode"

	"homestay_hub/internal/domain"
)

type Renderer struct {
	level qr.RecoveryLevel
}

var _ domain.QRRenderer = Renderer{}

// New uses medium error correction, enough for codes printed on table cards.
func New() Renderer { return Renderer{level: qr.Medium} }

func (r Renderer) PNG(content string, size int) ([]byte, error) {
	png, err := qr.Encode(content, r.level, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
