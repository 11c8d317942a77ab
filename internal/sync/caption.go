package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// BuildCaption produces the human-readable caption attached to an upload:
// file name, formatted size, and, when the file carries EXIF data, the
// capture date and camera model. Caption building is best-effort and never
// fails; unavailable fields are simply omitted.
func BuildCaption(path string, size int64) string {
	name := filepath.Base(path)

	parts := []string{
		fmt.Sprintf("📁 `%s`", name),
		fmt.Sprintf("📊 %s", humanize.Bytes(uint64(size))),
	}

	if taken, camera, ok := exifInfo(path); ok {
		if taken != nil {
			parts = append(parts, fmt.Sprintf("📅 %s", taken.Format("02.01.2006 15:04")))
		}
		if camera != "" {
			parts = append(parts, fmt.Sprintf("📷 %s", camera))
		}
	}

	if ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), ".")); ext != "" {
		parts = append(parts, fmt.Sprintf("🏷 #%s", ext))
	}

	return strings.Join(parts, "\n")
}

// exifInfo extracts the capture date and camera model from the file's EXIF
// block. Any failure, including a file without EXIF, reports ok=false.
func exifInfo(path string) (taken *time.Time, camera string, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, "", false
	}

	if dt, err := x.DateTime(); err == nil {
		taken = &dt
	}

	camera = tagString(x, exif.Model)
	if camera == "" {
		camera = tagString(x, exif.Make)
	}

	return taken, camera, true
}

// tagString extracts a string value from an EXIF tag.
func tagString(x *exif.Exif, f exif.FieldName) string {
	tag, err := x.Get(f)
	if err != nil {
		return ""
	}
	if tag.Format() == tiff.StringVal {
		s, _ := tag.StringVal()
		return strings.TrimSpace(s)
	}
	return tag.String()
}
