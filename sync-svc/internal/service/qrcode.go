package service

import (
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate(restaurantID, tableID string) ([]byte, error)
}

// DefaultQRGenerator encodes the guest ordering link of a table.
type DefaultQRGenerator struct {
	// URLTemplate may contain {restaurant} and {table}.
	URLTemplate string
}

func (g DefaultQRGenerator) Link(restaurantID, tableID string) string {
	return strings.NewReplacer(
		"{restaurant}", url.QueryEscape(restaurantID),
		"{table}", url.QueryEscape(tableID),
	).Replace(g.URLTemplate)
}

func (g DefaultQRGenerator) Generate(restaurantID, tableID string) ([]byte, error) {
	return qrcode.Encode(g.Link(restaurantID, tableID), qrcode.Medium, 256)
}
