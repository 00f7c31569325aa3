// Package tagging writes basic ID3 metadata onto delivered mp3 artifacts so
// the file is identifiable after it leaves the system.
package tagging

import (
	"fmt"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// TagFile stamps the display label as the title of an mp3 file. Other
// artifact formats pass through untouched.
func TagFile(filePath, title string) error {
	if !strings.EqualFold(ext(filePath), ".mp3") {
		return nil
	}
	if title == "" {
		return nil
	}

	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(title)

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

func ext(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return ""
	}
	return path[i:]
}
