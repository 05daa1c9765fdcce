package media

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	// MaxPictureBytes bounds the accepted upload size.
	MaxPictureBytes = 5 * 1024 * 1024

	pictureSize = 512
)

// normalizePicture decodes an uploaded image, fits it into a
// pictureSize square and re-encodes it as PNG.
func normalizePicture(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty picture")
	}
	if len(data) > MaxPictureBytes {
		return nil, errors.Errorf("picture exceeds %d bytes", MaxPictureBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode picture")
	}
	img = imaging.Fit(img, pictureSize, pictureSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "encode picture")
	}
	return buf.Bytes(), nil
}
