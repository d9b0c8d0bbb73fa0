// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package links

import (
	"fmt"

	"github.com/soerfi/qr-wizard/internal/qrimage"
)

// ImageDownload is the rendered QR image for a single link, ready to be
// written to an HTTP response.
type ImageDownload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DownloadImage renders the QR code encoding a link's tracking URL.
// Filename is "QR_<slug>_<name>.<ext>" (or "QR_<slug>.<ext>" when the link
// has no name), matching the original app's naming.
func (m *Manager) DownloadImage(id int64, format qrimage.Format, sizePx int) (*ImageDownload, error) {
	l, err := m.store.GetLink(id)
	if err != nil {
		return nil, err
	}

	data, contentType, ext, err := qrimage.Render(m.TrackingURL(l.Slug), format, sizePx)
	if err != nil {
		return nil, err
	}

	safeName := safeFilename(l.Slug, l.Name, ext)
	filename := fmt.Sprintf("QR_%s", safeName)

	return &ImageDownload{Filename: filename, ContentType: contentType, Data: data}, nil
}
