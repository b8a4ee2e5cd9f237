package service

import (
	"net/http"

	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
)

// MaxLogoBytes bounds an uploaded logo.
const MaxLogoBytes = 2 << 20

// DetectLogo sniffs the upload and accepts PNG and JPEG only.
func DetectLogo(data []byte) (string, error) {
	if len(data) == 0 {
		return "", settingsdomain.ErrInvalidLogo
	}
	if len(data) > MaxLogoBytes {
		return "", settingsdomain.ErrLogoTooLarge
	}
	switch mime := http.DetectContentType(data); mime {
	case "image/png", "image/jpeg":
		return mime, nil
	default:
		return "", settingsdomain.ErrInvalidLogo
	}
}
